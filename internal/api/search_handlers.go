package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/export"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// pagination is the page metadata attached to search responses.
type pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

// searchFilters echoes the applied filters back to the caller.
type searchFilters struct {
	Keyword    string `json:"keyword,omitempty"`
	Category   string `json:"category,omitempty"`
	Location   string `json:"location,omitempty"`
	Experience string `json:"experience,omitempty"`
	Deadline   string `json:"deadline,omitempty"`
	SortBy     string `json:"sortBy,omitempty"`
}

type searchResponse struct {
	Jobs       []jobs.SearchRow `json:"jobs"`
	Pagination pagination       `json:"pagination"`
	Filters    searchFilters    `json:"filters"`
}

func searchQueryFromRequest(r *http.Request) jobs.SearchQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return jobs.SearchQuery{
		Keyword:    q.Get("keyword"),
		Category:   q.Get("category"),
		Location:   q.Get("location"),
		Experience: q.Get("experience"),
		Deadline:   jobs.DeadlineWindow(q.Get("deadline")),
		Sort:       jobs.SortKey(q.Get("sortBy")),
		Page:       page,
		Limit:      limit,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := searchQueryFromRequest(r)
	rows, total, err := s.jobs.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("search jobs", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	if rows == nil {
		rows = []jobs.SearchRow{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{
		Jobs: rows,
		Pagination: pagination{
			CurrentPage: q.Page,
			TotalPages:  totalPages,
			TotalCount:  total,
			Limit:       q.Limit,
			HasNext:     q.Page < totalPages,
			HasPrev:     q.Page > 1,
		},
		Filters: searchFilters{
			Keyword:    q.Keyword,
			Category:   q.Category,
			Location:   q.Location,
			Experience: q.Experience,
			Deadline:   string(q.Deadline),
			SortBy:     string(q.Sort),
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobs.Stats(r.Context())
	if err != nil {
		s.logger.Error("load stats", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleGetJob returns one joined listing. Each read durably bumps the view
// counter before the row is loaded.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	if err := s.jobs.IncrementViews(r.Context(), id); err != nil {
		s.logger.Warn("increment views", zap.Int64("id", id), zap.Error(err))
	}
	row, err := s.jobs.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job", zap.Int64("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.jobs.ExportRows(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		s.logger.Error("load export rows", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	if err := export.WriteXLSX(w, rows); err != nil {
		// headers are already out; all we can do is log
		s.logger.Error("write export workbook", zap.Error(err))
	}
}
