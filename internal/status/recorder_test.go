package status

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockStore implements Store with scripted failures.
type mockStore struct {
	mu       sync.Mutex
	rows     map[string]*Request // by object key
	getErrs  []error             // consumed one per GetByObjectKey call
	updErrs  []error             // consumed one per UpdateStatus call
	getCalls int
	updates  []Update
	updCalls int
}

func newMockStore(rows ...*Request) *mockStore {
	m := &mockStore{rows: make(map[string]*Request)}
	for _, r := range rows {
		m.rows[r.ObjectKey] = r
	}
	return m
}

func (m *mockStore) GetByObjectKey(ctx context.Context, objectKey string) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if len(m.getErrs) > 0 {
		err := m.getErrs[0]
		m.getErrs = m.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	row, ok := m.rows[objectKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *mockStore) UpdateStatus(ctx context.Context, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updCalls++
	if len(m.updErrs) > 0 {
		err := m.updErrs[0]
		m.updErrs = m.updErrs[1:]
		if err != nil {
			return err
		}
	}
	m.updates = append(m.updates, u)
	return nil
}

func stagedRequest(key string) *Request {
	return &Request{
		RequestID:      "req-" + key,
		RequestGroupID: "group-1",
		GranuleID:      "granule-1",
		ObjectKey:      key,
		JobType:        "restore",
		JobStatus:      StatusStaged,
	}
}

func TestMarkInProgress(t *testing.T) {
	store := newMockStore(stagedRequest("dr/file.txt"))
	rec := NewRecorder(store, WithRetry(2, 0))

	req, err := rec.MarkInProgress(context.Background(), "dr/file.txt", "archive_txt")
	if err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if req.JobStatus != StatusInProgress {
		t.Errorf("JobStatus = %s, want %s", req.JobStatus, StatusInProgress)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(store.updates))
	}
	upd := store.updates[0]
	if upd.RequestID != "req-dr/file.txt" || upd.JobStatus != StatusInProgress || upd.ArchiveBucketDest != "archive_txt" {
		t.Errorf("unexpected update: %+v", upd)
	}
}

func TestMarkInProgressNotFoundIsNotRetried(t *testing.T) {
	store := newMockStore()
	rec := NewRecorder(store, WithRetry(2, 0))

	_, err := rec.MarkInProgress(context.Background(), "missing.txt", "archive")
	if err == nil {
		t.Fatal("expected error for missing row")
	}

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}
	if store.getCalls != 1 {
		t.Errorf("expected 1 read, got %d", store.getCalls)
	}
	if store.updCalls != 0 {
		t.Errorf("expected no updates, got %d", store.updCalls)
	}
}

func TestMarkInProgressRetriesTransientRead(t *testing.T) {
	store := newMockStore(stagedRequest("k.txt"))
	store.getErrs = []error{errors.New("conn reset"), errors.New("conn reset")}
	rec := NewRecorder(store, WithRetry(2, 0))

	if _, err := rec.MarkInProgress(context.Background(), "k.txt", "archive"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if store.getCalls != 3 {
		t.Errorf("expected 3 reads, got %d", store.getCalls)
	}
	if len(store.updates) != 1 {
		t.Errorf("expected exactly 1 in-progress write, got %d", len(store.updates))
	}
}

func TestMarkFinalPersistenceError(t *testing.T) {
	store := newMockStore(stagedRequest("k.txt"))
	dbErr := errors.New("Database Error. Internal database error")
	store.updErrs = []error{dbErr, dbErr, dbErr}
	rec := NewRecorder(store, WithRetry(2, 0))

	req := stagedRequest("k.txt")
	err := rec.MarkFinal(context.Background(), req, true, "")
	if err == nil {
		t.Fatal("expected persistence error")
	}

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %T", err)
	}
	if pe.Op != "update" {
		t.Errorf("Op = %s, want update", pe.Op)
	}
	if !errors.Is(err, dbErr) {
		t.Error("PersistenceError should unwrap to the store error")
	}
	if store.updCalls != 3 {
		t.Errorf("expected 3 update attempts, got %d", store.updCalls)
	}
	if len(store.updates) != 0 {
		t.Errorf("no update should have been applied, got %d", len(store.updates))
	}
}

func TestMarkFinal(t *testing.T) {
	tests := []struct {
		name       string
		success    bool
		errMsg     string
		wantStatus JobStatus
		wantErrMsg string
	}{
		{"success", true, "ignored", StatusComplete, ""},
		{"failure", false, "AccessDenied", StatusError, "AccessDenied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(stagedRequest("k.txt"))
			rec := NewRecorder(store, WithRetry(2, 0))

			req := stagedRequest("k.txt")
			req.ArchiveBucketDest = "archive"
			if err := rec.MarkFinal(context.Background(), req, tt.success, tt.errMsg); err != nil {
				t.Fatalf("MarkFinal failed: %v", err)
			}

			if len(store.updates) != 1 {
				t.Fatalf("expected 1 update, got %d", len(store.updates))
			}
			upd := store.updates[0]
			if upd.JobStatus != tt.wantStatus {
				t.Errorf("JobStatus = %s, want %s", upd.JobStatus, tt.wantStatus)
			}
			if upd.ErrMsg != tt.wantErrMsg {
				t.Errorf("ErrMsg = %q, want %q", upd.ErrMsg, tt.wantErrMsg)
			}
			if !req.JobStatus.Terminal() {
				t.Errorf("request status %s should be terminal", req.JobStatus)
			}
		})
	}
}

func TestWithRetryHonoursContext(t *testing.T) {
	store := newMockStore(stagedRequest("k.txt"))
	store.getErrs = []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}
	rec := NewRecorder(store, WithRetry(2, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rec.MarkInProgress(ctx, "k.txt", "archive")
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %T: %v", err, err)
	}
	if store.getCalls != 1 {
		t.Errorf("expected 1 read before giving up, got %d", store.getCalls)
	}
}
