// Package storage writes image variants to the configured object store.
package storage

import (
	"context"
	"fmt"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
)

// Store puts objects under deterministic keys. A second Put to the same key
// overwrites the first.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Close() error
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(cfg.S3)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
