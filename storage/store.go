// Package storage keeps attachment bytes outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"projtrack/config"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrDisabled       = errors.New("storage service not configured")
)

// Object is an opened blob. The caller must close Reader.
type Object struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// BlobStore is a flat key/value store for file contents.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by storage.driver.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Driver {
	case "minio":
		return NewMinioStore(ctx, MinioConfig{
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
			Bucket:          cfg.Storage.Bucket,
		})
	case "local":
		return NewLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
