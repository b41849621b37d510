package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"gocloud.dev/gcerrors"
)

// ObjectStore copies objects between buckets.
type ObjectStore interface {
	// Copy copies srcBucket/srcKey to dstBucket/dstKey in a single request.
	// The store does not retry on its own.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// Close releases any resources.
	Close() error
}

// CopyError describes a failed copy request. Code carries the provider's
// error code when one is available (e.g. "AccessDenied", "NotFound").
type CopyError struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string
	Code         string
	Err          error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s/%s to %s/%s: %v",
		e.SourceBucket, e.SourceKey, e.DestBucket, e.DestKey, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// newCopyError wraps err and extracts a provider error code from either an
// AWS API error or a Go CDK error.
func newCopyError(srcBucket, srcKey, dstBucket, dstKey string, err error) *CopyError {
	return &CopyError{
		SourceBucket: srcBucket,
		SourceKey:    srcKey,
		DestBucket:   dstBucket,
		DestKey:      dstKey,
		Code:         ErrorCode(err),
		Err:          err,
	}
}

// ErrorCode returns the provider error code carried by err, or "" if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *CopyError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	if code := gcerrors.Code(err); code != gcerrors.Unknown && code != gcerrors.OK {
		return code.String()
	}
	return ""
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Backend string // "s3" | "blob"

	// S3 (also works for MinIO and other S3-compatible endpoints)
	Region   string
	Endpoint string

	// Blob: URL template with a {bucket} placeholder, e.g.
	// "s3://{bucket}?region=us-west-2", "gs://{bucket}", "file:///data/{bucket}".
	BlobURL string
}

// NewObjectStore creates a storage backend based on configuration.
func NewObjectStore(ctx context.Context, cfg StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "", "s3":
		return NewS3Store(ctx, cfg.Region, cfg.Endpoint)
	case "blob":
		if cfg.BlobURL == "" {
			return nil, fmt.Errorf("BlobURL required for blob backend")
		}
		return NewBlobStore(cfg.BlobURL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
