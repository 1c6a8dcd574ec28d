package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrFileNotFound is returned when a requested file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath is returned when a path is invalid or contains path traversal.
	ErrInvalidPath = errors.New("invalid path")
)

// LocalStorage implements BlobStorage on the local filesystem. It is the
// default backend for single-node deployments, keeping run artifacts under
// one base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a local filesystem storage rooted at baseDir.
// The directory is created if it does not exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	baseDir = filepath.Clean(baseDir)
	if baseDir == "" || baseDir == "." {
		return nil, fmt.Errorf("%w: base directory cannot be empty", ErrInvalidPath)
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		baseDir: baseDir,
	}, nil
}

// Upload stores data from the reader at the specified path. The file is
// written to a temporary name and renamed into place, so readers never see
// a partially written artifact.
func (s *LocalStorage) Upload(ctx context.Context, path string, reader io.Reader) error {
	fullPath, err := s.validateAndJoinPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fullPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize file: %w", err)
	}

	return nil
}

// Download retrieves data from the specified path.
func (s *LocalStorage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.validateAndJoinPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes the data at the specified path.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	fullPath, err := s.validateAndJoinPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Exists checks if data exists at the specified path.
func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := s.validateAndJoinPath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return true, nil
}

// GetURL returns the filesystem path of the artifact. There is no URL
// scheme for the local backend, callers serve the file themselves.
func (s *LocalStorage) GetURL(ctx context.Context, path string) (string, error) {
	fullPath, err := s.validateAndJoinPath(path)
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

	return fullPath, nil
}

// validateAndJoinPath joins the path with the base directory and ensures
// the result stays inside it.
func (s *LocalStorage) validateAndJoinPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}

	cleanPath := filepath.Clean(path)
	fullPath := filepath.Join(s.baseDir, cleanPath)

	relPath, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil || len(relPath) > 0 && relPath[0] == '.' {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	return fullPath, nil
}
