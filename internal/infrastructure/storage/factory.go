package storage

import (
	"context"
	"fmt"

	"familytree-backend/internal/config"
)

// New builds the photo store selected by cfg.Photo.Driver.
func New(ctx context.Context, cfg *config.Config) (PhotoStore, error) {
	switch cfg.Photo.Driver {
	case "", DriverFilesystem:
		return NewFilesystemStore(cfg.Photo.Dir)
	case DriverMinIO:
		return NewMinIOStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown photo driver %q", cfg.Photo.Driver)
	}
}
