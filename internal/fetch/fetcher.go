// Package fetch defines the page-fetcher contract consumed by the crawl
// pipeline. A Fetcher turns a URL into a parsed document; its browser or HTTP
// internals stay behind this interface.
package fetch

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// ErrLoadTimeout signals that the page did not load within the navigation
// budget. Callers treat it as a per-item skip, not a fatal error.
var ErrLoadTimeout = errors.New("page load timed out")

// Fetcher retrieves one rendered page. Implementations do not retry; retry
// and skip policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

// Factory opens a fresh fetcher session. The crawl orchestrator acquires one
// session per run and closes it deterministically when the run ends.
type Factory func() (Fetcher, error)
