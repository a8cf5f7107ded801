package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/config"
)

// ObjectStore holds uploaded file bytes addressed by public URL.
type ObjectStore interface {
	// Put stores body under name and returns its durable URL.
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes the object behind url. Deleting a missing object is not an error.
	Delete(ctx context.Context, url string) error
}

func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// keyFromURL maps a public URL back to its object key.
func keyFromURL(baseURL, url string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", &errors.StorageError{Op: "delete", Err: fmt.Errorf("url %q is not served by this store", url)}
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", &errors.StorageError{Op: "delete", Err: fmt.Errorf("invalid object key in %q", url)}
	}
	return key, nil
}

func publicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + key
}
