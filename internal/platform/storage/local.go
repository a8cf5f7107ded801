package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filedrop/internal/pkg/errors"
)

// LocalStore implements ObjectStore on the local filesystem; the API server
// publishes dir under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &errors.StorageError{Op: "put", Err: err}
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", &errors.StorageError{Op: "put", Err: err}
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		os.Remove(path) // Clean up on error
		return "", &errors.StorageError{Op: "put", Err: err}
	}

	return publicURL(s.baseURL, filepath.Base(name)), nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, filepath.Base(key))); err != nil && !os.IsNotExist(err) {
		return &errors.StorageError{Op: "delete", Err: err}
	}
	return nil
}
