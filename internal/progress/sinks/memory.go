package sinks

import (
	"context"
	"sync"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// DefaultTailCapacity bounds the in-memory log mirror.
const DefaultTailCapacity = 100

// MemorySink keeps a bounded tail of recent events for low-latency polling
// by the realtime log endpoint. The durable store stays append-only; only
// this mirror is capacity-bounded.
type MemorySink struct {
	mu      sync.RWMutex
	entries []store.LogRecord
	cap     int
	percent int
}

// NewMemorySink builds a sink retaining the last capacity entries.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultTailCapacity
	}
	return &MemorySink{cap: capacity}
}

// Consume appends the batch, truncating to capacity, and tracks the latest
// progress percentage.
func (s *MemorySink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.entries = append(s.entries, toLogRecord(evt))
		if evt.Kind == progress.KindProgress {
			s.percent = evt.Percent
		}
	}
	if over := len(s.entries) - s.cap; over > 0 {
		s.entries = append([]store.LogRecord(nil), s.entries[over:]...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *MemorySink) Close(context.Context) error {
	return nil
}

// Tail returns a copy of the retained entries, oldest first.
func (s *MemorySink) Tail() []store.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.LogRecord(nil), s.entries...)
}

// CurrentPercent reports the most recent progress value seen, 0 if none.
func (s *MemorySink) CurrentPercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.percent
}

// Reset clears the tail; called when a fresh run starts so stale progress
// does not bleed into the next run's realtime view.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.percent = 0
}
