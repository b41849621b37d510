package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// CopyObjectAPI is the subset of the S3 client used by S3Store.
type CopyObjectAPI interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Store copies objects with S3's server-side CopyObject.
// The object never leaves the provider, so there is no size-dependent
// streaming cost.
type S3Store struct {
	client CopyObjectAPI
}

// NewS3Store creates an S3 store using the default AWS credential chain.
// A non-empty endpoint switches to path-style addressing for MinIO and friends.
func NewS3Store(ctx context.Context, region, endpoint string) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Retries belong to the copy retry controller.
	cfg.RetryMaxAttempts = 1

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client}, nil
}

// NewS3StoreWithClient wraps an existing client. Used by tests.
func NewS3StoreWithClient(client CopyObjectAPI) *S3Store {
	return &S3Store{client: client}
}

// Copy issues one CopyObject request.
func (s *S3Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(srcBucket, srcKey)),
	}

	if _, err := s.client.CopyObject(ctx, input); err != nil {
		return newCopyError(srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no closable resources.
func (s *S3Store) Close() error {
	return nil
}

// copySource builds the URL-encoded "bucket/key" value CopyObject expects.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// Verify S3Store implements ObjectStore.
var _ ObjectStore = (*S3Store)(nil)
