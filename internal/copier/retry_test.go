package copier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/storage"
)

func TestRetryPolicyMaxAttempts(t *testing.T) {
	tests := []struct {
		retries int
		want    int
	}{
		{0, 1},
		{2, 3},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := (RetryPolicy{Retries: tt.retries}).MaxAttempts(); got != tt.want {
			t.Errorf("MaxAttempts(retries=%d) = %d, want %d", tt.retries, got, tt.want)
		}
	}
}

func TestRetryControllerAttempts(t *testing.T) {
	fail := errors.New("InternalError")
	tests := []struct {
		name        string
		retries     int
		errs        []error
		wantSuccess bool
		wantCalls   int
		wantSleeps  int
	}{
		{"first attempt ok", 2, nil, true, 1, 0},
		{"no retries configured", 0, []error{fail}, false, 1, 0},
		{"succeeds on last attempt", 2, []error{fail, fail}, true, 3, 2},
		{"budget exhausted", 2, []error{fail, fail, fail}, false, 3, 2},
		{"budget exhausted with failures left", 1, []error{fail, fail, fail}, false, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{errs: tt.errs}
			sleeper := &recordingSleeper{}
			rc := NewRetryController(NewExecutor(store, nil), RetryPolicy{Retries: tt.retries, Sleep: time.Second}, sleeper.Sleep)

			res := rc.Run(context.Background(), ObjectRef{SourceBucket: "src", SourceKey: "k.txt"}, "dst")

			if res.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", res.Success, tt.wantSuccess)
			}
			if got := store.callCount(); got != tt.wantCalls {
				t.Errorf("copy calls = %d, want %d", got, tt.wantCalls)
			}
			if len(sleeper.delays) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(sleeper.delays), tt.wantSleeps)
			}
			if !res.Success && res.ErrMsg != fail.Error() {
				t.Errorf("ErrMsg = %q, want %q", res.ErrMsg, fail.Error())
			}
			if res.Success && res.ErrMsg != "" {
				t.Errorf("ErrMsg = %q on success", res.ErrMsg)
			}
		})
	}
}

func TestRetryControllerReportsLastError(t *testing.T) {
	store := &mockStore{errs: []error{errors.New("first"), errors.New("second")}}
	rc := NewRetryController(NewExecutor(store, nil), RetryPolicy{Retries: 1}, (&recordingSleeper{}).Sleep)

	res := rc.Run(context.Background(), ObjectRef{SourceBucket: "src", SourceKey: "k"}, "dst")
	if res.ErrMsg != "second" {
		t.Errorf("ErrMsg = %q, want last error", res.ErrMsg)
	}
}

func TestRetryControllerSleepInterrupted(t *testing.T) {
	store := &mockStore{errs: []error{errors.New("SlowDown")}}
	sleeper := &recordingSleeper{err: context.Canceled}
	rc := NewRetryController(NewExecutor(store, nil), RetryPolicy{Retries: 3, Sleep: time.Minute}, sleeper.Sleep)

	res := rc.Run(context.Background(), ObjectRef{SourceBucket: "src", SourceKey: "k"}, "dst")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrMsg != context.Canceled.Error() {
		t.Errorf("ErrMsg = %q, want %q", res.ErrMsg, context.Canceled.Error())
	}
	if got := store.callCount(); got != 1 {
		t.Errorf("copy calls = %d, want 1", got)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext(cancelled) = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext did not return promptly on cancellation")
	}
}

func TestClassifiers(t *testing.T) {
	denied := &storage.CopyError{Code: "AccessDenied", Err: &smithy.GenericAPIError{Code: "AccessDenied"}}
	throttled := &smithy.GenericAPIError{Code: "SlowDown"}
	permanent := PermanentCodes("AccessDenied", "NoSuchKey")

	tests := []struct {
		name     string
		classify Classifier
		err      error
		want     Outcome
	}{
		{"nil", RetryAll, nil, OutcomeOK},
		{"provider error", RetryAll, denied, OutcomeTransient},
		{"cancelled", RetryAll, context.Canceled, OutcomePermanent},
		{"deadline", RetryAll, context.DeadlineExceeded, OutcomePermanent},
		{"listed code", permanent, denied, OutcomePermanent},
		{"unlisted code", permanent, throttled, OutcomeTransient},
		{"listed nil", permanent, nil, OutcomeOK},
		{"no codes", PermanentCodes(), denied, OutcomeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.classify(tt.err); got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExecutorCopiesUnderSameKey(t *testing.T) {
	store := &mockStore{}
	exec := NewExecutor(store, nil)

	att := exec.CopyOnce(context.Background(), ObjectRef{SourceBucket: "restore", SourceKey: "dir/a.xml"}, "archive")
	if att.Outcome != OutcomeOK || att.Err != nil {
		t.Fatalf("attempt = %+v", att)
	}
	want := copyCall{"restore", "dir/a.xml", "archive", "dir/a.xml"}
	if store.calls[0] != want {
		t.Errorf("call = %+v, want %+v", store.calls[0], want)
	}
}
