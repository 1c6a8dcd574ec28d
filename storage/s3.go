package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Storage implements BlobStorage using AWS S3.
type S3Storage struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	presignExpiration time.Duration
}

// NewS3Storage creates a new S3 storage client.
// It uses AWS SDK v2's default credential chain (IAM role on EC2).
func NewS3Storage(bucket, region string) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket name cannot be empty")
	}
	if region == "" {
		return nil, fmt.Errorf("S3 region cannot be empty")
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Storage{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            bucket,
		presignExpiration: 15 * time.Minute,
	}, nil
}

// Upload stores data from the reader at the specified key.
func (s *S3Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	key, err := objectKey(path)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentTypeForKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// Download retrieves data from the specified key.
func (s *S3Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := objectKey(path)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFoundError(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return result.Body, nil
}

// Delete removes the data at the specified key.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	key, err := objectKey(path)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFoundError(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// Exists checks if data exists at the specified key.
func (s *S3Storage) Exists(ctx context.Context, path string) (bool, error) {
	key, err := objectKey(path)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check S3 object existence: %w", err)
	}

	return true, nil
}

// GetURL returns a presigned URL for accessing the data at the specified key.
// Screenshot links handed out through the API expire after the configured
// presign lifetime.
func (s *S3Storage) GetURL(ctx context.Context, path string) (string, error) {
	key, err := objectKey(path)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrFileNotFound
	}

	presignResult, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignExpiration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignResult.URL, nil
}

// objectKey validates a path and normalizes it into an S3 object key.
// S3 has no filesystem, but keys go through the same traversal checks as
// local paths so the two backends accept the same inputs.
func objectKey(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Clean(path)), nil
}

// validatePath rejects empty, absolute, and traversal paths.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}

	cleanPath := filepath.Clean(path)

	if len(cleanPath) > 0 && cleanPath[0] == '.' {
		return fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("%w: absolute paths not allowed", ErrInvalidPath)
	}

	return nil
}

// contentTypeForKey maps the artifact extensions the run pipeline produces
// to MIME types. Correct types let presigned screenshot URLs render inline
// instead of downloading.
func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".log", ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// isS3NotFoundError checks if an error is an S3 "not found" error.
func isS3NotFoundError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
