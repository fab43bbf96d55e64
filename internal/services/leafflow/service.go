package leafflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// Service is a client for the LeafFlow internal API.
type Service struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewService constructs a new LeafFlow Service client.
func NewService(cfg config.LeafFlowConfig) *Service {
	return &Service{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
		token:   strings.TrimSpace(cfg.InternalToken),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// RegisterVariant records a stored variant against its image. The endpoint
// upserts, so repeating a call for the same variant is safe.
func (s *Service) RegisterVariant(ctx context.Context, imageID int64, v types.ImageVariantResult) error {
	if s.baseURL == "" {
		return fmt.Errorf("leafflow api base url is empty")
	}

	reqBody, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal image variant: %w", err)
	}

	url := fmt.Sprintf("%s/v1/internal/images/%d/variants", s.baseURL, imageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create register variant request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call leafflow register variant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("leafflow register variant returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logger.Info(ctx, "image variant registered", logger.Fields{
		"image_id": imageID,
		"variant":  v.Variant,
	})
	return nil
}
