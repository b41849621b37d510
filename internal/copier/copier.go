package copier

import (
	"context"
	"log/slog"
	"time"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/config"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/router"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/status"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/storage"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// StatusRecorder tracks the request row of each object around its copy.
type StatusRecorder interface {
	MarkInProgress(ctx context.Context, objectKey, destBucket string) (*status.Request, error)
	MarkFinal(ctx context.Context, req *status.Request, success bool, errMsg string) error
}

// Copier orchestrates one invocation: a batch of recovered objects copied
// to their permanent buckets, one at a time.
type Copier struct {
	router   *router.Router
	retry    *RetryController
	recorder StatusRecorder
	log      *slog.Logger
}

// Option configures a Copier.
type Option func(*options)

type options struct {
	sleep Sleeper
}

// WithSleeper replaces the retry delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleep = s }
}

// New creates a Copier. cfg is read once; later changes are not observed.
func New(cfg config.CopyConfig, store storage.ObjectStore, recorder StatusRecorder, opts ...Option) *Copier {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	exec := NewExecutor(store, PermanentCodes(cfg.PermanentErrorCodes...))
	policy := RetryPolicy{Retries: cfg.Retries, Sleep: cfg.RetrySleep}

	return &Copier{
		router:   router.New(cfg.BucketMap),
		retry:    NewRetryController(exec, policy, o.sleep),
		recorder: recorder,
		log:      slog.With("component", "copier"),
	}
}

// Handle copies every object in refs, in order. Objects whose copy exhausts
// its retries do not stop the batch; they are collected and reported as a
// single *CopyRequestError once every object has been attempted.
// Configuration, input and persistence errors abort immediately, also as a
// *CopyRequestError wrapping the cause.
func (c *Copier) Handle(ctx context.Context, refs []ObjectRef) ([]CopyResult, error) {
	start := time.Now()
	log := c.log.With("correlation_id", logging.CorrelationID(ctx))
	log.Info("invocation started", "objects", len(refs))

	results := make([]CopyResult, 0, len(refs))
	for _, ref := range refs {
		res, err := c.copyOne(ctx, ref)
		if err != nil {
			log.Error("invocation aborted", "object", ref.String(), "error", err)
			c.finish("aborted", start)
			return nil, &CopyRequestError{Err: err}
		}
		results = append(results, res)
	}

	var failed []CopyResult
	for _, res := range results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		log.Error("invocation finished with failures",
			"objects", len(results),
			"failed", len(failed),
			"duration", time.Since(start).String(),
		)
		c.finish("failed", start)
		return nil, &CopyRequestError{Failed: failed}
	}

	log.Info("invocation complete",
		"objects", len(results),
		"duration", time.Since(start).String(),
	)
	c.finish("ok", start)
	return results, nil
}

// copyOne runs route, in-progress, copy and final status for one object.
// A non-nil error aborts the invocation.
func (c *Copier) copyOne(ctx context.Context, ref ObjectRef) (CopyResult, error) {
	if err := ref.Validate(); err != nil {
		return CopyResult{}, err
	}

	dest, err := c.router.Route(ref.SourceKey)
	if err != nil {
		return CopyResult{}, err
	}

	log := logging.ObjectLogger(logging.CorrelationID(ctx), ref.SourceBucket, ref.SourceKey, dest)

	req, err := c.recorder.MarkInProgress(ctx, ref.SourceKey, dest)
	if err != nil {
		return CopyResult{}, err
	}

	copyStart := time.Now()
	res := c.retry.Run(ctx, ref, dest)
	elapsed := time.Since(copyStart)

	if m := metrics.Get(); m != nil {
		m.ObserveCopyDuration(elapsed.Seconds())
		if res.Success {
			m.IncObjectsCopied(string(status.StatusComplete))
		} else {
			m.IncObjectsCopied(string(status.StatusError))
		}
	}

	if err := c.recorder.MarkFinal(ctx, req, res.Success, res.ErrMsg); err != nil {
		return CopyResult{}, err
	}

	if res.Success {
		log.Info("object copied", "duration", elapsed.String())
	} else {
		log.Warn("object not copied", "error", res.ErrMsg)
	}
	return res, nil
}

func (c *Copier) finish(outcome string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.IncInvocations(outcome)
		m.ObserveInvocationDuration(time.Since(start).Seconds())
	}
}
