package copier

import (
	"context"
	"errors"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/storage"
)

// Classifier maps a copy error to an outcome. A nil error is OutcomeOK.
type Classifier func(err error) Outcome

// RetryAll treats every provider error as transient. Permission, not-found
// and throttling errors are all retried alike. Only a cancelled or expired
// context stops the retry loop early.
func RetryAll(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomePermanent
	}
	return OutcomeTransient
}

// PermanentCodes returns a classifier that additionally treats the listed
// provider error codes (e.g. "AccessDenied", "NoSuchKey") as permanent.
func PermanentCodes(codes ...string) Classifier {
	if len(codes) == 0 {
		return RetryAll
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return func(err error) Outcome {
		out := RetryAll(err)
		if out == OutcomeTransient && set[storage.ErrorCode(err)] {
			return OutcomePermanent
		}
		return out
	}
}

// Executor performs single copy attempts.
type Executor struct {
	store    storage.ObjectStore
	classify Classifier
}

// NewExecutor creates an Executor. A nil classifier means RetryAll.
func NewExecutor(store storage.ObjectStore, classify Classifier) *Executor {
	if classify == nil {
		classify = RetryAll
	}
	return &Executor{store: store, classify: classify}
}

// CopyOnce copies ref to destBucket under the same key.
func (e *Executor) CopyOnce(ctx context.Context, ref ObjectRef, destBucket string) Attempt {
	err := e.store.Copy(ctx, ref.SourceBucket, ref.SourceKey, destBucket, ref.SourceKey)
	return Attempt{Outcome: e.classify(err), Err: err}
}
