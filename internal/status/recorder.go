package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
)

// Store retry budget, independent of the copy retry budget.
const (
	DefaultRetries    = 2
	DefaultRetryDelay = 500 * time.Millisecond
)

// Recorder advances request status around a copy. Each store interaction is
// retried a small fixed number of times; a row that does not exist is not
// retried.
type Recorder struct {
	store   Store
	retries uint64
	delay   time.Duration
	log     *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRetry overrides the store retry budget.
func WithRetry(retries uint64, delay time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.retries = retries
		r.delay = delay
	}
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		retries: DefaultRetries,
		delay:   DefaultRetryDelay,
		log:     slog.With("component", "status"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MarkInProgress reads the current request for objectKey and moves it to
// inprogress, recording the destination bucket.
func (r *Recorder) MarkInProgress(ctx context.Context, objectKey, destBucket string) (*Request, error) {
	var req *Request
	err := r.withRetry(ctx, "read", objectKey, func() error {
		got, err := r.store.GetByObjectKey(ctx, objectKey)
		if err != nil {
			return notFoundIsPermanent(objectKey, err)
		}
		req = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	upd := Update{
		RequestID:         req.RequestID,
		JobStatus:         StatusInProgress,
		ArchiveBucketDest: destBucket,
	}
	if err := r.apply(ctx, objectKey, upd); err != nil {
		return nil, err
	}

	r.log.Debug("marked in progress",
		"request_id", req.RequestID,
		"object_key", objectKey,
		"previous_status", req.JobStatus,
	)

	req.JobStatus = StatusInProgress
	req.ArchiveBucketDest = destBucket
	req.ErrMsg = ""
	return req, nil
}

// MarkFinal writes the terminal status for req: complete on success,
// error with errMsg otherwise.
func (r *Recorder) MarkFinal(ctx context.Context, req *Request, success bool, errMsg string) error {
	upd := Update{
		RequestID:         req.RequestID,
		JobStatus:         StatusComplete,
		ArchiveBucketDest: req.ArchiveBucketDest,
	}
	if !success {
		upd.JobStatus = StatusError
		upd.ErrMsg = errMsg
	}

	if err := r.apply(ctx, req.ObjectKey, upd); err != nil {
		return err
	}

	req.JobStatus = upd.JobStatus
	req.ErrMsg = upd.ErrMsg
	return nil
}

func (r *Recorder) apply(ctx context.Context, objectKey string, upd Update) error {
	return r.withRetry(ctx, "update", objectKey, func() error {
		return notFoundIsPermanent(objectKey, r.store.UpdateStatus(ctx, upd))
	})
}

// withRetry runs fn under a constant backoff bounded by the retry budget.
// It returns *NotFoundError unchanged and wraps anything else in
// *PersistenceError.
func (r *Recorder) withRetry(ctx context.Context, op, objectKey string, fn func() error) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), r.retries),
		ctx,
	)

	err := backoff.RetryNotify(fn, b, func(err error, next time.Duration) {
		r.log.Warn("status store interaction failed, retrying",
			"op", op,
			"object_key", objectKey,
			"retry_in", next,
			"error", err,
		)
		if m := metrics.Get(); m != nil {
			m.IncStatusErrors(op)
		}
	})
	if err == nil {
		return nil
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf
	}

	if m := metrics.Get(); m != nil {
		m.IncStatusErrors(op)
	}
	return &PersistenceError{Op: op, ObjectKey: objectKey, Err: err}
}

func notFoundIsPermanent(objectKey string, err error) error {
	if err != nil && errors.Is(err, ErrNotFound) {
		return backoff.Permanent(&NotFoundError{ObjectKey: objectKey})
	}
	return err
}
