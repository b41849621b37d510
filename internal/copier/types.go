package copier

import (
	"encoding/json"
	"time"
)

// ObjectRef identifies one recovered object staged for copying.
type ObjectRef struct {
	SourceBucket string `json:"source_bucket"`
	SourceKey    string `json:"source_key"`
}

// Validate reports the first missing required field.
func (r ObjectRef) Validate() error {
	if r.SourceKey == "" {
		return &InputError{Record: r.String(), Path: "source_key"}
	}
	if r.SourceBucket == "" {
		return &InputError{Record: r.String(), Path: "source_bucket"}
	}
	return nil
}

func (r ObjectRef) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// CopyResult is the per-object outcome of one invocation.
type CopyResult struct {
	Success      bool   `json:"success"`
	SourceBucket string `json:"source_bucket"`
	SourceKey    string `json:"source_key"`
	TargetBucket string `json:"target_bucket"`
	ErrMsg       string `json:"err_msg"`
}

// Outcome classifies a single copy attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Attempt is the classified result of one copy request.
type Attempt struct {
	Outcome Outcome
	Err     error
}

// RetryPolicy is a fixed-delay retry budget.
// Total attempts are Retries+1.
type RetryPolicy struct {
	Retries int
	Sleep   time.Duration
}

// MaxAttempts returns the total number of copy attempts allowed.
func (p RetryPolicy) MaxAttempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}
