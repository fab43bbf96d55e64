// Package images derives catalogue image variants through the transform
// service and prepares them for storage.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// ErrNoEagerResults is returned when the transform service derived nothing.
var ErrNoEagerResults = errors.New("transform service returned no eager results")

// Transformer derives renditions of a remote image under a temporary key.
//
// DeriveVariants must return results in the order of variants: result i is
// the rendition of variants[i]. Names in the provider response are ignored.
type Transformer interface {
	DeriveVariants(ctx context.Context, sourceURL, key string, variants []config.Variant) ([]types.EagerResult, error)
	DeleteTemporary(ctx context.Context, key string) error
}

type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Variant is a derived rendition with its bytes.
type Variant struct {
	Data []byte
	Meta types.ImageVariantResult
}

type Pipeline struct {
	transformer Transformer
	downloader  Downloader
	namespace   string
	variants    []config.Variant
	format      string
}

func NewPipeline(transformer Transformer, downloader Downloader, namespace string, cfg config.ImagesConfig) *Pipeline {
	return &Pipeline{
		transformer: transformer,
		downloader:  downloader,
		namespace:   namespace,
		variants:    cfg.Variants,
		format:      cfg.OutputFormat,
	}
}

// TemporaryKey is the transform-service key for one image.
func TemporaryKey(namespace, productID string, imageID int64) string {
	return fmt.Sprintf("temp/%s/%s/%d", namespace, productID, imageID)
}

// StorageKey places a variant next to the original object.
func StorageKey(originalKey, variant, format string) string {
	dir := ""
	if i := strings.LastIndex(originalKey, "/"); i >= 0 {
		dir = originalKey[:i]
	}
	return dir + "/" + variant + "." + format
}

// Process derives, downloads and describes every variant of the image. The
// temporary transform resource is deleted on every exit path; a failed
// delete is only logged.
func (p *Pipeline) Process(ctx context.Context, ev *types.ImageUploadedEvent) (variants []Variant, err error) {
	key := TemporaryKey(p.namespace, ev.ProductID, ev.ImageID)
	fields := logger.Fields{"image_id": ev.ImageID, "public_id": key}

	defer func() {
		if delErr := p.transformer.DeleteTemporary(ctx, key); delErr != nil {
			logger.WarnErr(ctx, "failed to delete temporary image", delErr, fields)
			return
		}
		logger.Debug(ctx, "temporary image deleted", fields)
	}()

	eager, err := p.transformer.DeriveVariants(ctx, ev.OriginalURL, key, p.variants)
	if err != nil {
		return nil, fmt.Errorf("failed to derive variants: %w", err)
	}
	if len(eager) == 0 {
		return nil, ErrNoEagerResults
	}

	parsed := associate(p.variants, eager)

	for _, v := range p.variants {
		res, ok := parsed[v.Name]
		if !ok {
			logger.Warn(ctx, "variant missing from eager results", logger.Fields{
				"image_id": ev.ImageID,
				"variant":  v.Name,
			})
			continue
		}

		data, err := p.downloader.Download(ctx, res.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download variant %s: %w", v.Name, err)
		}

		meta := types.ImageVariantResult{
			Variant:    v.Name,
			StorageKey: StorageKey(ev.OriginalKey, v.Name, p.format),
			Format:     p.format,
			Width:      res.Width,
			Height:     res.Height,
			ByteSize:   len(data),
		}
		logger.Info(ctx, "variant prepared", logger.Fields{
			"image_id":  ev.ImageID,
			"variant":   meta.Variant,
			"width":     meta.Width,
			"height":    meta.Height,
			"byte_size": meta.ByteSize,
		})
		variants = append(variants, Variant{Data: data, Meta: meta})
	}

	return variants, nil
}

// associate pairs results with variant names by position. Extra results are
// dropped.
func associate(variants []config.Variant, eager []types.EagerResult) map[string]types.EagerResult {
	out := make(map[string]types.EagerResult, len(variants))
	for i, res := range eager {
		if i >= len(variants) {
			break
		}
		out[variants[i].Name] = res
	}
	return out
}
