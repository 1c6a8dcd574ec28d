// Package storage archives run artifacts (screenshots, engine logs) in blob
// storage. Items reference blobs by key; the HTTP layer serves them back via
// Download or a presigned URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// BlobStorage defines the interface for storing and retrieving binary data.
type BlobStorage interface {
	// Upload stores data from the reader at the specified path.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download retrieves data from the specified path.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the data at the specified path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetURL returns a URL for accessing the data at the specified path.
	// For local storage, this returns a filesystem path.
	GetURL(ctx context.Context, path string) (string, error)
}

// Config selects and parameterizes a BlobStorage implementation.
type Config struct {
	// Type is "local" or "s3".
	Type string
	// BaseDir is the root directory for local storage.
	BaseDir string
	// Bucket and Region select the S3 bucket.
	Bucket string
	Region string
	// PresignExpiry overrides the presigned URL lifetime. Zero keeps the
	// default.
	PresignExpiry time.Duration
}

// NewBlobStorage creates a BlobStorage implementation from config.
func NewBlobStorage(cfg Config) (BlobStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base_dir is required for local storage")
		}
		return NewLocalStorage(cfg.BaseDir)

	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for S3 storage")
		}
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for S3 storage")
		}

		s3Storage, err := NewS3Storage(cfg.Bucket, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}

		if cfg.PresignExpiry > 0 {
			s3Storage.presignExpiration = cfg.PresignExpiry
		}

		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
