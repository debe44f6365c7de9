package postgres

import (
	"context"
	"fmt"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// LogStore implements store.LogRepository on Postgres. Entries are append
// only; readers always see them newest first.
type LogStore struct {
	db DB
}

// NewLogStore returns a LogStore bound to db.
func NewLogStore(db DB) *LogStore {
	return &LogStore{db: db}
}

const appendLogSQL = `INSERT INTO crawl_logs (kind, message, ts, progress) VALUES ($1, $2, $3, $4)`

// Append persists a batch of log entries in order.
func (s *LogStore) Append(ctx context.Context, batch []store.LogRecord) error {
	for _, rec := range batch {
		if _, err := s.db.Exec(ctx, appendLogSQL, rec.Kind, rec.Message, rec.TS, rec.Progress); err != nil {
			return fmt.Errorf("append crawl log: %w", err)
		}
	}
	return nil
}

// Recent returns the newest entries first.
func (s *LogStore) Recent(ctx context.Context, limit int) ([]store.LogRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, message, ts, progress FROM crawl_logs
		ORDER BY ts DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query crawl logs: %w", err)
	}
	defer rows.Close()

	out := make([]store.LogRecord, 0, limit)
	for rows.Next() {
		var rec store.LogRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Message, &rec.TS, &rec.Progress); err != nil {
			return nil, fmt.Errorf("scan crawl log: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl logs: %w", err)
	}
	return out, nil
}
