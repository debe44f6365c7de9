// Package api exposes the HTTP facade: job search and export plus crawl
// control and monitoring.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress/sinks"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// CrawlTrigger starts a crawl in the background, or reports
// store.ErrRunInProgress. Running reflects the in-process latch.
type CrawlTrigger interface {
	TryRun(ctx context.Context) error
	Running() bool
}

// Config tunes the HTTP server.
type Config struct {
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Server wires repositories and the crawl trigger into an HTTP API.
type Server struct {
	cfg     Config
	jobs    store.JobRepository
	runs    store.RunRepository
	logs    store.LogRepository
	trigger CrawlTrigger
	live    *sinks.MemorySink
	logger  *zap.Logger
	http    *http.Server
}

// New builds the Server and its router.
func New(cfg Config, jobs store.JobRepository, runs store.RunRepository, logs store.LogRepository, trigger CrawlTrigger, live *sinks.MemorySink, logger *zap.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		jobs:    jobs,
		runs:    runs,
		logs:    logs,
		trigger: trigger,
		live:    live,
		logger:  logger,
	}
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}
	return s
}

// Routes assembles the chi router. Exposed separately so tests can mount it
// on httptest servers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/search", s.handleSearch)
			r.Get("/search/stats", s.handleStats)
			r.Get("/search/{id}", s.handleGetJob)
			r.Get("/export", s.handleExport)
		})
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/", s.handleStartCrawl)
			r.Get("/status", s.handleCrawlStatus)
			r.Get("/logs", s.handleCrawlLogs)
			r.Get("/logs/realtime", s.handleRealtimeLogs)
			r.Get("/history", s.handleCrawlHistory)
		})
	})
	return r
}

// Start serves until ctx is canceled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness including stored corpus counts, so operators
// see at a glance whether data has landed yet.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	master, detail, last, err := s.jobs.Counts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"jobs":       master,
		"details":    detail,
		"lastUpdate": last,
	})
}
