package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// RunStore implements store.RunRepository on Postgres. The single-run claim
// and the terminal-state guard both live in SQL predicates so they hold
// across processes, not just within one.
type RunStore struct {
	db DB
}

// NewRunStore returns a RunStore bound to db.
func NewRunStore(db DB) *RunStore {
	return &RunStore{db: db}
}

const claimRunSQL = `
	INSERT INTO crawl_history (status, started_at, processed)
	SELECT 'running', $1, 0
	WHERE NOT EXISTS (SELECT 1 FROM crawl_history WHERE status = 'running')
	RETURNING id`

// Start claims the single-run slot. The conditional insert makes claim and
// check one atomic statement; a held claim surfaces as ErrRunInProgress.
func (s *RunStore) Start(ctx context.Context, startedAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, claimRunSQL, startedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrRunInProgress
	}
	if err != nil {
		return 0, fmt.Errorf("claim crawl run: %w", err)
	}
	return id, nil
}

// UpdateProcessed records the accumulated summary count. The status predicate
// rejects writes against runs that already reached a terminal state.
func (s *RunStore) UpdateProcessed(ctx context.Context, id int64, processed int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE crawl_history SET processed = $2
		WHERE id = $1 AND status = 'running'`, id, processed)
	if err != nil {
		return fmt.Errorf("update run %d processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRunFinished
	}
	return nil
}

const finishRunSQL = `
	UPDATE crawl_history
	SET status = $2,
		ended_at = $3,
		duration_ms = (EXTRACT(EPOCH FROM ($3::timestamptz - started_at)) * 1000)::bigint,
		processed = $4
	WHERE id = $1 AND status = 'running'`

// Finish finalizes the run exactly once. Duration is derived from the stored
// start time so the record stays consistent even if callers disagree about
// when the run began.
func (s *RunStore) Finish(ctx context.Context, id int64, status store.RunStatus, endedAt time.Time, processed int64) error {
	if !status.Terminal() {
		return fmt.Errorf("finish run %d: %q is not a terminal status", id, status)
	}
	tag, err := s.db.Exec(ctx, finishRunSQL, id, string(status), endedAt, processed)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRunFinished
	}
	return nil
}

const reclaimOrphanedSQL = `
	UPDATE crawl_history
	SET status = 'failed',
		ended_at = $1,
		duration_ms = (EXTRACT(EPOCH FROM ($1::timestamptz - started_at)) * 1000)::bigint
	WHERE status = 'running'`

// ReclaimOrphaned finalizes running rows left behind by a dead process as
// failed, returning how many were swept. Runs once at startup, before the
// claim is ever contended, so an interrupted run cannot wedge the single-run
// slot permanently.
func (s *RunStore) ReclaimOrphaned(ctx context.Context, endedAt time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, reclaimOrphanedSQL, endedAt)
	if err != nil {
		return 0, fmt.Errorf("reclaim orphaned runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

const runColumns = `id, status, started_at, ended_at, duration_ms, processed`

// Get loads one run record.
func (s *RunStore) Get(ctx context.Context, id int64) (store.RunRecord, error) {
	var r store.RunRecord
	err := s.db.QueryRow(ctx, `SELECT `+runColumns+` FROM crawl_history WHERE id = $1`, id).
		Scan(&r.ID, &r.Status, &r.StartedAt, &r.EndedAt, &r.DurationMs, &r.Processed)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.RunRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.RunRecord{}, fmt.Errorf("get run %d: %w", id, err)
	}
	return r, nil
}

// List returns recent runs, newest start first.
func (s *RunStore) List(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+runColumns+` FROM crawl_history
		ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]store.RunRecord, 0, limit)
	for rows.Next() {
		var r store.RunRecord
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &r.EndedAt, &r.DurationMs, &r.Processed); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
