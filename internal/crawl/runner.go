package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// TailResetter clears a per-run realtime view. The memory sink satisfies it;
// resetting happens here so every trigger path (HTTP, scheduler) starts the
// run with a clean tail.
type TailResetter interface {
	Reset()
}

// Runner launches crawls in the background and enforces one run at a time
// within the process. The database claim in store.RunRepository remains the
// cross-process authority; the in-process latch just rejects duplicate
// triggers without a round trip.
type Runner struct {
	crawler *Crawler
	tail    TailResetter
	logger  *zap.Logger
	slot    chan struct{}
}

// NewRunner wraps crawler for asynchronous triggering. tail may be nil.
func NewRunner(crawler *Crawler, tail TailResetter, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		crawler: crawler,
		tail:    tail,
		logger:  logger,
		slot:    make(chan struct{}, 1),
	}
}

// TryRun starts a crawl in the background. It returns store.ErrRunInProgress
// without side effects when a run is already active, either in this process
// or recorded in the database claim.
func (r *Runner) TryRun(ctx context.Context) error {
	select {
	case r.slot <- struct{}{}:
	default:
		return store.ErrRunInProgress
	}
	r.resetTail()

	go func() {
		defer func() { <-r.slot }()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("crawl run panicked", zap.Any("panic", rec))
			}
		}()
		if err := r.crawler.Run(ctx); err != nil {
			r.logger.Error("crawl run ended with error", zap.Error(err))
		}
	}()
	return nil
}

// RunBlocking executes a crawl synchronously, holding the latch for its
// duration. The scheduler uses this so overlapping ticks collapse.
func (r *Runner) RunBlocking(ctx context.Context) error {
	select {
	case r.slot <- struct{}{}:
	default:
		return store.ErrRunInProgress
	}
	defer func() { <-r.slot }()
	r.resetTail()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("crawl run panicked", zap.Any("panic", rec))
		}
	}()
	if err := r.crawler.Run(ctx); err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}
	return nil
}

// Running reports whether this process currently holds the latch.
func (r *Runner) Running() bool {
	return len(r.slot) > 0
}

func (r *Runner) resetTail() {
	if r.tail != nil {
		r.tail.Reset()
	}
}
