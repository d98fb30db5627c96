package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores blobs as objects in a Cloud Storage bucket. It relies on
// Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *GCS) Put(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("GCS.Put: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.bucket.Object(k).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCS.Put: write %s: %w", k, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCS.Put: finalize %s: %w", k, err)
	}
	return nil
}

func (s *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, fmt.Errorf("GCS.Get: %w", err)
	}
	r, err := s.bucket.Object(k).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GCS.Get: open reader %s: %w", k, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("GCS.Get: read %s: %w", k, err)
	}
	return data, nil
}

func (s *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GCS.List: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCS) Delete(ctx context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return fmt.Errorf("GCS.Delete: %w", err)
	}
	if err := s.bucket.Object(k).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("GCS.Delete: %s: %w", k, err)
	}
	return nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}
