// Package cloudinary derives image variants through Cloudinary eager
// transformations.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

const resourceType = "image"

type Client struct {
	cld    *cld.Cloudinary
	format string
}

func NewClient(cfg config.CloudinaryConfig, outputFormat string) (*Client, error) {
	c, err := cld.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &Client{cld: c, format: outputFormat}, nil
}

// DeriveVariants has Cloudinary fetch sourceURL under the temporary public id
// and synchronously build one eager rendition per variant. Results are in the
// same order as variants.
func (c *Client) DeriveVariants(ctx context.Context, sourceURL, key string, variants []config.Variant) ([]types.EagerResult, error) {
	logger.Info(ctx, "cloudinary fetching source image", logger.Fields{
		"public_id": key,
		"url":       sourceURL,
	})

	resp, err := c.cld.Upload.Upload(ctx, sourceURL, uploader.UploadParams{
		PublicID:     key,
		Eager:        EagerTransformations(variants, c.format),
		EagerAsync:   api.Bool(false),
		Overwrite:    api.Bool(true),
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", resp.Error.Message)
	}

	results := make([]types.EagerResult, 0, len(resp.Eager))
	for _, eager := range resp.Eager {
		results = append(results, types.EagerResult{
			URL:    eager.SecureURL,
			Width:  eager.Width,
			Height: eager.Height,
		})
	}
	return results, nil
}

// DeleteTemporary destroys the temporary resource.
func (c *Client) DeleteTemporary(ctx context.Context, key string) error {
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     key,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from cloudinary: %w", key, err)
	}
	if resp.Error.Message != "" {
		return errors.New("cloudinary destroy rejected: " + resp.Error.Message)
	}
	return nil
}

// EagerTransformations builds the eager parameter, one fitted rendition per
// variant separated by "|".
func EagerTransformations(variants []config.Variant, format string) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, fmt.Sprintf("w_%d,h_%d,c_fit,q_%d,f_%s", v.Width, v.Height, v.Quality, format))
	}
	return strings.Join(parts, "|")
}
