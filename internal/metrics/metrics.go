// Package metrics exposes Prometheus collectors for the crawl service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal  *prometheus.CounterVec
	fetchTimeoutsTotal *prometheus.CounterVec
	rowsUpsertedTotal  *prometheus.CounterVec
	upsertFailedTotal  *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	runDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_fetched_total",
				Help: "Pages fetched from the source site, labeled by page type.",
			},
			[]string{"page"},
		)
		fetchTimeoutsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_timeouts_total",
				Help: "Page loads abandoned after the navigation timeout, labeled by page type.",
			},
			[]string{"page"},
		)
		rowsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_rows_upserted_total",
				Help: "Rows persisted, labeled by table.",
			},
			[]string{"table"},
		)
		upsertFailedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_rows_failed_total",
				Help: "Row persistence failures isolated within a batch, labeled by table.",
			},
			[]string{"table"},
		)
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_runs_total",
				Help: "Crawl runs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)
		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_run_duration_seconds",
				Help:    "Wall time per finished crawl run.",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 3600},
			},
		)
	})
}

// PageFetched records one fetched page of the given type (listing/detail).
func PageFetched(page string) {
	if pagesFetchedTotal != nil {
		pagesFetchedTotal.WithLabelValues(page).Inc()
	}
}

// FetchTimeout records one abandoned page load.
func FetchTimeout(page string) {
	if fetchTimeoutsTotal != nil {
		fetchTimeoutsTotal.WithLabelValues(page).Inc()
	}
}

// RowsUpserted adds n persisted rows for a table.
func RowsUpserted(table string, n int) {
	if rowsUpsertedTotal != nil && n > 0 {
		rowsUpsertedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RowsFailed adds n isolated row failures for a table.
func RowsFailed(table string, n int) {
	if upsertFailedTotal != nil && n > 0 {
		upsertFailedTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RunFinished records a run's terminal status and duration.
func RunFinished(status string, dur time.Duration) {
	if runsTotal != nil {
		runsTotal.WithLabelValues(status).Inc()
	}
	if runDurationSeconds != nil {
		runDurationSeconds.Observe(dur.Seconds())
	}
}
