// Package scheduler triggers crawl runs on a cron cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// Trigger starts a crawl and reports store.ErrRunInProgress when one is
// already active.
type Trigger interface {
	RunBlocking(ctx context.Context) error
}

// Config controls the crawl schedule.
type Config struct {
	// Spec is a standard five-field cron expression.
	Spec string
	// RunAtStartup fires one crawl immediately after Start.
	RunAtStartup bool
}

// Scheduler owns the cron loop. Ticks that land while a run is active are
// dropped, not queued.
type Scheduler struct {
	cfg     Config
	trigger Trigger
	logger  *zap.Logger
	cron    *cron.Cron
}

// New builds a Scheduler around trigger.
func New(cfg Config, trigger Trigger, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		trigger: trigger,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start registers the cron entry and launches the loop. ctx bounds every
// triggered run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("register cron spec %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.logger.Info("crawl scheduler started", zap.String("spec", s.cfg.Spec))

	if s.cfg.RunAtStartup {
		go s.fire(ctx)
	}
	return nil
}

// Stop halts the cron loop and waits for an in-flight tick callback.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("crawl scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled crawl firing")
	err := s.trigger.RunBlocking(ctx)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrRunInProgress):
		s.logger.Warn("scheduled crawl skipped, run already in progress")
	default:
		s.logger.Error("scheduled crawl failed", zap.Error(err))
	}
}
