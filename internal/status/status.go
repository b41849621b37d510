// Package status tracks the lifecycle of recovery requests in the
// request_status table.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a tracked request.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusStaged     JobStatus = "staged"
	StatusInProgress JobStatus = "inprogress"
	StatusComplete   JobStatus = "complete"
	StatusError      JobStatus = "error"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ErrNotFound is returned when no request row exists for an object key.
var ErrNotFound = errors.New("request status not found")

// Request is one row of request_status.
type Request struct {
	RequestID         string
	RequestGroupID    string
	GranuleID         string
	ObjectKey         string
	JobType           string
	RestoreBucketDest string
	ArchiveBucketDest string
	JobStatus         JobStatus
	ErrMsg            string
	RequestTime       time.Time
	LastUpdateTime    time.Time
}

// Update is a status transition for a single request.
type Update struct {
	RequestID         string
	JobStatus         JobStatus
	ErrMsg            string
	ArchiveBucketDest string
}

// Store reads and writes request status rows.
type Store interface {
	// GetByObjectKey returns the most recently updated request for key.
	// Returns an error wrapping ErrNotFound when no row exists.
	GetByObjectKey(ctx context.Context, objectKey string) (*Request, error)

	// UpdateStatus applies an update to an existing row. Applying the same
	// update twice leaves the row in the same state.
	UpdateStatus(ctx context.Context, u Update) error
}

// NotFoundError reports an object with no upstream request row.
type NotFoundError struct {
	ObjectKey string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no request status found for object key %q", e.ObjectKey)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PersistenceError reports a store interaction that kept failing after
// its retry budget was spent.
type PersistenceError struct {
	Op        string // "read" | "update"
	ObjectKey string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("status %s for %s failed: %v", e.Op, e.ObjectKey, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
