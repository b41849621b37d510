package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // local filesystem driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // in-memory driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

const bucketPlaceholder = "{bucket}"

// BlobStore copies objects through the Go CDK portable blob API.
// Buckets are opened lazily from a URL template and cached for the life of
// the store. Cross-bucket copies stream the object through this process;
// same-bucket copies use the driver's native copy.
type BlobStore struct {
	urlTemplate string

	mu      sync.Mutex
	buckets map[string]*blob.Bucket
}

// NewBlobStore creates a store from a URL template containing {bucket},
// e.g. "gs://{bucket}" or "file:///srv/archive/{bucket}".
func NewBlobStore(urlTemplate string) (*BlobStore, error) {
	if !strings.Contains(urlTemplate, bucketPlaceholder) {
		return nil, fmt.Errorf("blob URL %q must contain %s", urlTemplate, bucketPlaceholder)
	}
	return &BlobStore{
		urlTemplate: urlTemplate,
		buckets:     make(map[string]*blob.Bucket),
	}, nil
}

// URL returns the bucket URL for name.
func (s *BlobStore) URL(name string) string {
	return strings.ReplaceAll(s.urlTemplate, bucketPlaceholder, name)
}

// Bucket returns the opened bucket for name, opening it on first use.
func (s *BlobStore) Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[name]; ok {
		return b, nil
	}

	b, err := blob.OpenBucket(ctx, s.URL(name))
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", name, err)
	}
	s.buckets[name] = b
	return b, nil
}

// Copy copies srcBucket/srcKey to dstBucket/dstKey.
func (s *BlobStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src, err := s.Bucket(ctx, srcBucket)
	if err != nil {
		return newCopyError(srcBucket, srcKey, dstBucket, dstKey, err)
	}

	if srcBucket == dstBucket {
		if err := src.Copy(ctx, dstKey, srcKey, nil); err != nil {
			return newCopyError(srcBucket, srcKey, dstBucket, dstKey, err)
		}
		return nil
	}

	dst, err := s.Bucket(ctx, dstBucket)
	if err != nil {
		return newCopyError(srcBucket, srcKey, dstBucket, dstKey, err)
	}

	if err := streamObject(ctx, src, srcKey, dst, dstKey); err != nil {
		return newCopyError(srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}

// streamObject copies one object between two buckets, preserving its
// content type.
func streamObject(ctx context.Context, src *blob.Bucket, srcKey string, dst *blob.Bucket, dstKey string) error {
	r, err := src.NewReader(ctx, srcKey, nil)
	if err != nil {
		return fmt.Errorf("open source %s: %w", srcKey, err)
	}
	defer r.Close()

	// Cancelling the writer's context before Close discards a partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := dst.NewWriter(wctx, dstKey, &blob.WriterOptions{
		ContentType: r.ContentType(),
	})
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dstKey, err)
	}

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("copy to %s: %w", dstKey, err)
	}

	return w.Close()
}

// Close releases every opened bucket.
func (s *BlobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for name, b := range s.buckets {
		if err := b.Close(); err != nil {
			lastErr = fmt.Errorf("close bucket %s: %w", name, err)
		}
		delete(s.buckets, name)
	}
	return lastErr
}

// Verify BlobStore implements ObjectStore.
var _ ObjectStore = (*BlobStore)(nil)
