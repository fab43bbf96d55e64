package storage

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
)

// GCSStore writes to a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore uses the credentials file when set and application default
// credentials otherwise. An explicit endpoint is treated as an emulator and
// skips authentication.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", s.bucket, key, err)
	}

	logger.Debug(ctx, "object stored", logger.Fields{
		"bucket": s.bucket,
		"key":    key,
		"size":   len(data),
	})
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
