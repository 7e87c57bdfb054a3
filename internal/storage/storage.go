// Package storage provides the content-addressable blob capability the
// ingestion pipeline writes renditions into. Deletes are idempotent: removing
// an absent object reports false, never an error.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogix/backend/internal/config"
)

// ErrNotFound is returned by Get when no object exists at the location.
var ErrNotFound = errors.New("storage: object not found")

// Storage is the blob-store contract. Put returns the location the object is
// retrievable under; for both built-in backends the location equals the key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) (bool, error)
	Exists(ctx context.Context, location string) (bool, error)
}

// New builds the storage backend selected by the configuration.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.StorageType {
	case "local":
		return NewLocalStorage(cfg.StorageBasePath)
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}
