package sinks

import (
	"context"
	"fmt"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// StoreSink persists events into the durable log store in batches.
type StoreSink struct {
	repo store.LogRepository
}

// NewStoreSink constructs a StoreSink over the provided repository.
func NewStoreSink(repo store.LogRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Consume converts the batch into log records and appends them. Repository
// errors surface to the hub verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil || len(batch) == 0 {
		return nil
	}
	records := make([]store.LogRecord, 0, len(batch))
	for _, evt := range batch {
		records = append(records, toLogRecord(evt))
	}
	if err := s.repo.Append(ctx, records); err != nil {
		return fmt.Errorf("append crawl logs: %w", err)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

func toLogRecord(evt progress.Event) store.LogRecord {
	rec := store.LogRecord{
		Kind:    string(evt.Kind),
		Message: evt.Message,
		TS:      evt.TS,
	}
	if evt.Kind == progress.KindProgress {
		pct := int32(evt.Percent)
		rec.Progress = &pct
	}
	return rec
}
