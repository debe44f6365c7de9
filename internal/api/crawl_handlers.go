package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// handleStartCrawl kicks off a crawl and returns immediately. The run
// continues in the background; progress is observable via the status and log
// endpoints.
func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	// detach from the request context so the run outlives this response
	err := s.trigger.TryRun(context.WithoutCancel(r.Context()))
	if errors.Is(err, store.ErrRunInProgress) {
		s.writeError(w, http.StatusConflict, "crawl already in progress")
		return
	}
	if err != nil {
		s.logger.Error("start crawl", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to start crawl")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	running := s.trigger.Running()
	percent := 0
	if s.live != nil {
		percent = s.live.CurrentPercent()
	}
	runs, err := s.runs.List(r.Context(), 1)
	if err != nil {
		s.logger.Error("load last run", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	master, detail, lastUpdate, err := s.jobs.Counts(r.Context())
	if err != nil {
		s.logger.Error("load stored counts", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	resp := map[string]any{
		"isRunning":  running,
		"progress":   percent,
		"jobs":       master,
		"details":    detail,
		"lastUpdate": lastUpdate,
	}
	if len(runs) > 0 {
		resp["lastRun"] = runs[0]
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCrawlLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.logs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("load crawl logs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "logs unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

// handleRealtimeLogs serves the bounded in-memory tail, cheap enough for
// dashboards to poll every second while a run is active.
func (s *Server) handleRealtimeLogs(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"isRunning": s.trigger.Running(),
	}
	if s.live != nil {
		resp["progress"] = s.live.CurrentPercent()
		resp["logs"] = s.live.Tail()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCrawlHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("load crawl history", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}
