package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

type stubJobs struct {
	rows       []jobs.SearchRow
	total      int64
	detail     jobs.DetailRow
	detailErr  error
	viewBumped []int64
}

func (s *stubJobs) UpsertSummaries(context.Context, []jobs.Summary) (store.BatchResult, error) {
	return store.BatchResult{}, nil
}
func (s *stubJobs) UpsertContact(context.Context, jobs.Contact) (*int64, error) { return nil, nil }
func (s *stubJobs) UpsertDetail(context.Context, jobs.Detail, *int64) error     { return nil }
func (s *stubJobs) Search(_ context.Context, q jobs.SearchQuery) ([]jobs.SearchRow, int64, error) {
	return s.rows, s.total, nil
}
func (s *stubJobs) Stats(context.Context) (jobs.Stats, error) {
	return jobs.Stats{TotalJobs: s.total}, nil
}
func (s *stubJobs) GetByID(_ context.Context, id int64) (jobs.DetailRow, error) {
	if s.detailErr != nil {
		return jobs.DetailRow{}, s.detailErr
	}
	return s.detail, nil
}
func (s *stubJobs) IncrementViews(_ context.Context, id int64) error {
	s.viewBumped = append(s.viewBumped, id)
	return nil
}
func (s *stubJobs) ExportRows(context.Context, string) ([]jobs.DetailRow, error) { return nil, nil }
func (s *stubJobs) Counts(context.Context) (int64, int64, *time.Time, error) {
	return s.total, 0, nil, nil
}

type stubRuns struct {
	runs []store.RunRecord
}

func (s *stubRuns) Start(context.Context, time.Time) (int64, error) { return 1, nil }
func (s *stubRuns) UpdateProcessed(context.Context, int64, int64) error {
	return nil
}
func (s *stubRuns) Finish(context.Context, int64, store.RunStatus, time.Time, int64) error {
	return nil
}
func (s *stubRuns) Get(context.Context, int64) (store.RunRecord, error) {
	return store.RunRecord{}, store.ErrNotFound
}
func (s *stubRuns) List(context.Context, int) ([]store.RunRecord, error) { return s.runs, nil }

type stubLogs struct {
	records []store.LogRecord
}

func (s *stubLogs) Append(context.Context, []store.LogRecord) error { return nil }
func (s *stubLogs) Recent(context.Context, int) ([]store.LogRecord, error) {
	return s.records, nil
}

type stubTrigger struct {
	err     error
	running bool
	started int
}

func (s *stubTrigger) TryRun(context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.started++
	return nil
}
func (s *stubTrigger) Running() bool { return s.running }

func newTestServer(j *stubJobs, runs *stubRuns, logs *stubLogs, trig *stubTrigger) *httptest.Server {
	srv := New(Config{Port: 0}, j, runs, logs, trig, nil, nil)
	return httptest.NewServer(srv.Routes())
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestStartCrawlReturnsImmediately(t *testing.T) {
	t.Parallel()
	trig := &stubTrigger{}
	ts := newTestServer(&stubJobs{}, &stubRuns{}, &stubLogs{}, trig)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/crawl", "application/json", nil)
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "started", body["data"].(map[string]any)["status"])
	assert.Equal(t, 1, trig.started)
}

func TestStartCrawlConflictsWhileRunning(t *testing.T) {
	t.Parallel()
	trig := &stubTrigger{err: store.ErrRunInProgress}
	ts := newTestServer(&stubJobs{}, &stubRuns{}, &stubLogs{}, trig)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/crawl", "application/json", nil)
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestSearchEnvelope(t *testing.T) {
	t.Parallel()
	j := &stubJobs{
		rows:  []jobs.SearchRow{{ID: 1, Title: "백엔드 개발자", Company: "에이사"}},
		total: 41,
	}
	ts := newTestServer(j, &stubRuns{}, &stubLogs{}, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/jobs/search?keyword=백엔드&page=2&limit=20")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]any)
	pg := data["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pg["currentPage"])
	assert.Equal(t, float64(3), pg["totalPages"])
	assert.Equal(t, float64(41), pg["totalCount"])
	assert.Equal(t, true, pg["hasNext"])
	assert.Equal(t, true, pg["hasPrev"])
	assert.Equal(t, "백엔드", data["filters"].(map[string]any)["keyword"])
	assert.Len(t, data["jobs"].([]any), 1)
}

func TestGetJobIncrementsViews(t *testing.T) {
	t.Parallel()
	j := &stubJobs{detail: jobs.DetailRow{SearchRow: jobs.SearchRow{ID: 7, Title: "데이터 엔지니어"}}}
	ts := newTestServer(j, &stubRuns{}, &stubLogs{}, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/jobs/search/7")
	require.NoError(t, err)
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int64{7}, j.viewBumped)
	assert.Equal(t, float64(7), body["data"].(map[string]any)["id"])
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()
	j := &stubJobs{detailErr: store.ErrNotFound}
	ts := newTestServer(j, &stubRuns{}, &stubLogs{}, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/jobs/search/99")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetJobRejectsBadID(t *testing.T) {
	t.Parallel()
	ts := newTestServer(&stubJobs{}, &stubRuns{}, &stubLogs{}, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/jobs/search/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCrawlStatus(t *testing.T) {
	t.Parallel()
	ended := time.Now()
	dur := int64(120000)
	runs := &stubRuns{runs: []store.RunRecord{{
		ID: 5, Status: store.RunCompleted, EndedAt: &ended, DurationMs: &dur, Processed: 87,
	}}}
	ts := newTestServer(&stubJobs{}, runs, &stubLogs{}, &stubTrigger{running: true})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/crawl/status")
	require.NoError(t, err)
	body := decode(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["isRunning"])
	assert.Equal(t, float64(87), data["lastRun"].(map[string]any)["processed"])
}

func TestCrawlLogs(t *testing.T) {
	t.Parallel()
	logs := &stubLogs{records: []store.LogRecord{
		{ID: 2, Kind: "success", Message: "1페이지에서 20건 저장", TS: time.Now()},
		{ID: 1, Kind: "info", Message: "크롤링을 시작합니다", TS: time.Now()},
	}}
	ts := newTestServer(&stubJobs{}, &stubRuns{}, logs, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/crawl/logs?limit=10")
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Len(t, body["data"].([]any), 2)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts := newTestServer(&stubJobs{}, &stubRuns{}, &stubLogs{}, &stubTrigger{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
