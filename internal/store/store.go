// Package store declares the persistence interfaces and records consumed by
// the crawl pipeline and the HTTP facade.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrRunFinished signals a write against a run that already reached a
// terminal state. Terminal runs are never overwritten.
var ErrRunFinished = errors.New("run already finalized")

// ErrRunInProgress signals that another run currently holds the single-run
// claim.
var ErrRunInProgress = errors.New("a crawl run is already in progress")

// RunStatus mirrors the crawl_history status column.
type RunStatus string

// Run statuses persisted in crawl_history.status.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status ends a run's lifecycle.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// RunRecord models one crawl run for history endpoints.
type RunRecord struct {
	ID int64 `json:"id"`
	// Status is running until the run is finalized exactly once.
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	// EndedAt and DurationMs stay nil until the run reaches a terminal state.
	EndedAt    *time.Time `json:"endedAt"`
	DurationMs *int64     `json:"duration"`
	// Processed counts accumulated summaries; it only grows during a run.
	Processed int64 `json:"processed"`
}

// LogRecord is one append-only crawl log entry. Entries are immutable once
// written; only the in-memory mirror is capacity-bounded.
type LogRecord struct {
	ID      int64     `json:"id,omitempty"`
	Kind    string    `json:"type"`
	Message string    `json:"message"`
	TS      time.Time `json:"timestamp"`
	// Progress is set only for progress-kind entries, in [0,100].
	Progress *int32 `json:"progress,omitempty"`
}

// RunRepository tracks per-run lifecycle state. Start acquires the single-run
// claim; UpdateProcessed and Finish are guarded so a terminal run rejects
// further writes.
type RunRepository interface {
	// Start opens a new running record, or returns ErrRunInProgress when
	// another run already holds the claim.
	Start(ctx context.Context, startedAt time.Time) (int64, error)
	// UpdateProcessed sets the accumulated summary count for a running run.
	// Returns ErrRunFinished if the run is already terminal.
	UpdateProcessed(ctx context.Context, id int64, processed int64) error
	// Finish finalizes the run exactly once. Duration is derived from the
	// stored start time. Returns ErrRunFinished on a second finalize.
	Finish(ctx context.Context, id int64, status RunStatus, endedAt time.Time, processed int64) error
	// Get loads a single run or returns ErrNotFound.
	Get(ctx context.Context, id int64) (RunRecord, error)
	// List returns recent runs ordered by start time descending.
	List(ctx context.Context, limit int) ([]RunRecord, error)
}

// LogRepository appends and reads crawl log entries.
type LogRepository interface {
	Append(ctx context.Context, batch []LogRecord) error
	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]LogRecord, error)
}

// RowError captures one failed row inside an otherwise successful batch.
type RowError struct {
	Link string `json:"link"`
	Err  string `json:"error"`
}

// BatchResult reports per-row outcomes of a summary batch upsert. A failed
// row never aborts its siblings.
type BatchResult struct {
	Saved  int
	Failed []RowError
}

// JobRepository persists and queries job records.
type JobRepository interface {
	// UpsertSummaries inserts-or-updates each summary keyed by link,
	// isolating per-row failures into the result.
	UpsertSummaries(ctx context.Context, batch []jobs.Summary) (BatchResult, error)
	// UpsertContact dedups on the (name, phone, email) tuple and returns the
	// row id, or nil when the contact is empty.
	UpsertContact(ctx context.Context, c jobs.Contact) (*int64, error)
	// UpsertDetail inserts-or-updates the detail keyed by link; contactID may
	// be nil.
	UpsertDetail(ctx context.Context, d jobs.Detail, contactID *int64) error

	Search(ctx context.Context, q jobs.SearchQuery) ([]jobs.SearchRow, int64, error)
	Stats(ctx context.Context) (jobs.Stats, error)
	// GetByID returns the joined summary+detail+contact view or ErrNotFound.
	GetByID(ctx context.Context, id int64) (jobs.DetailRow, error)
	// IncrementViews durably bumps the view counter for one listing.
	IncrementViews(ctx context.Context, id int64) error
	// ExportRows returns the joined rows matching an optional keyword for
	// spreadsheet export.
	ExportRows(ctx context.Context, keyword string) ([]jobs.DetailRow, error)
	// Counts reports stored master/detail row totals plus the newest
	// summary timestamp.
	Counts(ctx context.Context) (master int64, detail int64, lastUpdate *time.Time, err error)
}
