// Package staging holds the transient state of bulk imports between the
// stage and process phases: per-job metadata plus a FIFO queue of validated
// rows, keyed by job key.
package staging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxErrors caps how many per-row errors a job's metadata retains
// when the job does not set its own limit.
const DefaultMaxErrors = 500

// ErrJobNotFound is returned when no job exists under the given key.
var ErrJobNotFound = errors.New("staging job not found")

// JobStatus is the lifecycle state of a staging job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusStaging    JobStatus = "staging"
	StatusStaged     JobStatus = "staged"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the move to next is legal. The lifecycle
// only moves forward; failed is reachable from any non-terminal state, and a
// state may re-assert itself (processing runs span multiple batches).
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusStaging
	case StatusStaging:
		return next == StatusStaged
	case StatusStaged:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted
	}
	return false
}

// RowError is one captured per-row failure.
type RowError struct {
	RowNumber int    `json:"row_number"`
	Message   string `json:"message"`
}

// JobMeta is the staged job's metadata blob.
type JobMeta struct {
	JobKey     string    `json:"job_key"`
	ImportType string    `json:"import_type"`
	Status     JobStatus `json:"status"`

	MessageRequestID int64 `json:"message_request_id,omitempty"`
	FileID           int64 `json:"file_id,omitempty"`

	// ErrorMessage is the job-level failure reason when Status is failed.
	ErrorMessage   string   `json:"error_message,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	UnknownColumns []string `json:"unknown_columns,omitempty"`

	// Stage phase counters.
	TotalRows  int `json:"total_rows"`
	StagedRows int `json:"staged_rows"`
	BadRows    int `json:"bad_rows"`

	// Process phase counters.
	SkippedRows int `json:"skipped_rows"`
	CreatedRows int `json:"created_rows"`

	// MaxErrors bounds Errors; zero means DefaultMaxErrors.
	MaxErrors int        `json:"max_errors,omitempty"`
	Errors    []RowError `json:"errors,omitempty"`

	// TTLSeconds overrides the store-wide retention for this job when
	// positive.
	TTLSeconds int `json:"ttl_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaptureError appends a row error, respecting the cap. Returns whether the
// error was retained.
func (m *JobMeta) CaptureError(rowNumber int, message string) bool {
	max := m.MaxErrors
	if max <= 0 {
		max = DefaultMaxErrors
	}
	if len(m.Errors) >= max {
		return false
	}
	m.Errors = append(m.Errors, RowError{RowNumber: rowNumber, Message: message})
	return true
}

// Transition moves the job to next, enforcing the lifecycle.
func (m *JobMeta) Transition(next JobStatus) error {
	if !m.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal staging transition %s -> %s for job %s", m.Status, next, m.JobKey)
	}
	m.Status = next
	return nil
}

// Fail moves the job to failed with a reason. Calls on terminal jobs error.
func (m *JobMeta) Fail(reason string) error {
	if err := m.Transition(StatusFailed); err != nil {
		return err
	}
	m.ErrorMessage = reason
	return nil
}

// StagedRow is one normalized input row awaiting processing. Rows that
// failed normalization are staged too, carrying their errors, so the process
// phase can count them. RowNumber is 1-based file position (the header is
// row 1).
type StagedRow struct {
	RowNumber  int            `json:"row_number"`
	Raw        map[string]any `json:"raw,omitempty"`
	Normalized map[string]any `json:"normalized"`
	Extras     map[string]any `json:"extras,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
}

// Store persists staging jobs and their row queues.
type Store interface {
	// CreateJob writes a fresh job's metadata. The job key must be unused.
	CreateJob(ctx context.Context, meta *JobMeta) error

	// GetJob reads a job's metadata, ErrJobNotFound when absent.
	GetJob(ctx context.Context, jobKey string) (*JobMeta, error)

	// UpdateJob rewrites a job's metadata and refreshes its TTL.
	UpdateJob(ctx context.Context, meta *JobMeta) error

	// PushRows appends rows to the tail of the job's queue.
	PushRows(ctx context.Context, jobKey string, rows []StagedRow) error

	// PopRows removes and returns up to limit rows from the head of the
	// queue, preserving order. A non-positive limit returns nothing.
	PopRows(ctx context.Context, jobKey string, limit int) ([]StagedRow, error)

	// CountRows returns the number of rows still queued.
	CountRows(ctx context.Context, jobKey string) (int64, error)

	// DeleteJob drops the job's metadata and queue.
	DeleteJob(ctx context.Context, jobKey string) error
}
