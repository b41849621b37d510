package copier

import (
	"context"
	"sync"
	"time"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/status"
)

type copyCall struct {
	SrcBucket, SrcKey, DstBucket, DstKey string
}

// mockStore fails the first len(errs) copies with the scripted errors, then
// succeeds. failKeys fail on every attempt.
type mockStore struct {
	mu       sync.Mutex
	errs     []error
	failKeys map[string]error
	calls    []copyCall
}

func (m *mockStore) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, copyCall{srcBucket, srcKey, dstBucket, dstKey})
	if err, ok := m.failKeys[srcKey]; ok {
		return err
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type finalCall struct {
	ObjectKey string
	Success   bool
	ErrMsg    string
}

type progressCall struct {
	ObjectKey  string
	DestBucket string
}

type mockRecorder struct {
	mu          sync.Mutex
	progressErr error
	finalErr    error
	inProgress  []progressCall
	finals      []finalCall
}

func (m *mockRecorder) MarkInProgress(ctx context.Context, objectKey, destBucket string) (*status.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inProgress = append(m.inProgress, progressCall{objectKey, destBucket})
	if m.progressErr != nil {
		return nil, m.progressErr
	}
	return &status.Request{
		RequestID:         "request-" + objectKey,
		ObjectKey:         objectKey,
		JobStatus:         status.StatusInProgress,
		ArchiveBucketDest: destBucket,
	}, nil
}

func (m *mockRecorder) MarkFinal(ctx context.Context, req *status.Request, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finals = append(m.finals, finalCall{req.ObjectKey, success, errMsg})
	return m.finalErr
}

// recordingSleeper records requested delays without blocking.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}
