package copier

import (
	"context"
	"log/slog"
	"time"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
)

type retryState int

const (
	stateAttempting retryState = iota
	stateSuccess
	stateExhausted
)

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryController drives an Executor until the copy succeeds or the retry
// budget is spent. Attempts for one object are strictly sequential.
type RetryController struct {
	exec   *Executor
	policy RetryPolicy
	sleep  Sleeper
	log    *slog.Logger
}

// NewRetryController creates a controller. A nil sleeper blocks on a timer.
func NewRetryController(exec *Executor, policy RetryPolicy, sleep Sleeper) *RetryController {
	if sleep == nil {
		sleep = sleepContext
	}
	return &RetryController{
		exec:   exec,
		policy: policy,
		sleep:  sleep,
		log:    slog.With("component", "retry"),
	}
}

// Run copies ref to destBucket and returns the final result. A failure is
// reported in the result, never as an error.
func (rc *RetryController) Run(ctx context.Context, ref ObjectRef, destBucket string) CopyResult {
	maxAttempts := rc.policy.MaxAttempts()
	log := rc.log.With("source_bucket", ref.SourceBucket, "source_key", ref.SourceKey, "target_bucket", destBucket)

	state := stateAttempting
	n := 1
	var last Attempt

	for state == stateAttempting {
		if m := metrics.Get(); m != nil {
			m.IncCopyAttempts()
			if n > 1 {
				m.IncCopyRetries()
			}
		}

		last = rc.exec.CopyOnce(ctx, ref, destBucket)

		switch {
		case last.Outcome == OutcomeOK:
			state = stateSuccess
		case last.Outcome == OutcomePermanent || n >= maxAttempts:
			state = stateExhausted
		default:
			log.Warn("copy attempt failed, retrying",
				"attempt", n,
				"max_attempts", maxAttempts,
				"retry_in", rc.policy.Sleep,
				"error", last.Err,
			)
			if err := rc.sleep(ctx, rc.policy.Sleep); err != nil {
				last = Attempt{Outcome: OutcomePermanent, Err: err}
				state = stateExhausted
				continue
			}
			n++
		}
	}

	result := CopyResult{
		Success:      state == stateSuccess,
		SourceBucket: ref.SourceBucket,
		SourceKey:    ref.SourceKey,
		TargetBucket: destBucket,
	}
	if !result.Success {
		result.ErrMsg = last.Err.Error()
		log.Error("copy failed", "attempts", n, "outcome", last.Outcome, "error", last.Err)
	} else if n > 1 {
		log.Info("copy succeeded after retry", "attempts", n)
	}
	return result
}
