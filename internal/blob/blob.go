// Package blob stores opaque byte objects under slash-separated keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dvloznov/finance-health/internal/config"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("blob not found")

// Store is a flat key/value object store. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage.Blob {
	case config.BlobFS:
		return NewFS(cfg.App.DataDir), nil
	case config.BlobGCS:
		s, err := NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BlobAzure:
		s, err := NewAzure(ctx, cfg.Storage.ServiceURL, cfg.Storage.Container)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("blob.New: unknown backend %q", cfg.Storage.Blob)
	}
}

// cleanKey rejects keys that are empty or escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimPrefix(key, "/"))
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return k, nil
}
