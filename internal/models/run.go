package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/likedb/internal/shared"
)

// Run kinds
const (
	RunKindExtract = "extract"
	RunKindLoad    = "load"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run records one extract or load invocation and its totals.
type Run struct {
	id             string
	sequence       int
	kind           string
	status         string
	snapshotPath   string
	recordsTotal   int
	recordsWritten int
	recordsFailed  int
	errorMessage   string
	startedAt      *time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewRun creates a running [Run] of the given kind against a snapshot path.
func NewRun(kind, snapshotPath string) *Run {
	now := time.Now().UTC()
	return &Run{
		kind:         kind,
		status:       RunStatusRunning,
		snapshotPath: snapshotPath,
		startedAt:    &now,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (r *Run) ID() string { return r.id }
func (r *Run) Sequence() int { return r.sequence }
func (r *Run) Kind() string { return r.kind }
func (r *Run) Status() string { return r.status }
func (r *Run) SnapshotPath() string { return r.snapshotPath }
func (r *Run) RecordsTotal() int { return r.recordsTotal }
func (r *Run) RecordsWritten() int { return r.recordsWritten }
func (r *Run) RecordsFailed() int { return r.recordsFailed }
func (r *Run) ErrorMessage() string { return r.errorMessage }
func (r *Run) StartedAt() *time.Time { return r.startedAt }
func (r *Run) CompletedAt() *time.Time { return r.completedAt }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }

func (r *Run) SetID(id string) { r.id = id }
func (r *Run) SetSequence(sequence int) { r.sequence = sequence }
func (r *Run) SetStatus(status string) { r.status = status }
func (r *Run) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *Run) SetStartedAt(t *time.Time) { r.startedAt = t }
func (r *Run) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *Run) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Run) SetRecords(total, written, failed int) {
	r.recordsTotal, r.recordsWritten, r.recordsFailed = total, written, failed
}

// Finish marks the run completed. A nil err means success.
func (r *Run) Finish(err error) {
	now := time.Now().UTC()
	r.completedAt = &now
	if err != nil {
		r.status = RunStatusFailed
		r.errorMessage = err.Error()
		return
	}
	r.status = RunStatusSucceeded
}

// Duration returns the elapsed time between start and completion, or zero if either is unset.
func (r *Run) Duration() time.Duration {
	if r.startedAt == nil || r.completedAt == nil {
		return 0
	}
	return r.completedAt.Sub(*r.startedAt)
}

// Validate checks kind, status, path and counters.
func (r *Run) Validate() error {
	switch r.kind {
	case RunKindExtract, RunKindLoad:
	default:
		return fmt.Errorf("%w: unknown run kind %q", shared.ErrInvalidInput, r.kind)
	}

	switch r.status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
	default:
		return fmt.Errorf("%w: unknown run status %q", shared.ErrInvalidInput, r.status)
	}

	if r.snapshotPath == "" {
		return fmt.Errorf("%w: snapshot path is required", shared.ErrInvalidInput)
	}

	if r.recordsTotal < 0 || r.recordsWritten < 0 || r.recordsFailed < 0 {
		return fmt.Errorf("%w: record counts must not be negative", shared.ErrInvalidInput)
	}

	return nil
}
