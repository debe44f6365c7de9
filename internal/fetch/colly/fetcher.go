// Package collyfetch implements fetch.Fetcher using the Colly collector. It
// is the plain-HTTP alternative to the headless driver for environments
// without a browser, or when the source serves fully rendered markup.
package collyfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/fetch"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher performs single-page GETs through a cloned Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Close satisfies fetch.Fetcher; the collector holds no pooled resources
// beyond the default transport.
func (f *Fetcher) Close() error { return nil }

// Fetch executes a single HTTP GET and parses the response body. Network
// timeouts map to fetch.ErrLoadTimeout.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Request("GET", url, nil, colly.NewContext(), nil); err != nil {
		fetchErr = err
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch canceled: %w", err)
	}
	if fetchErr != nil {
		if isTimeout(fetchErr) {
			return nil, fmt.Errorf("%w: %s", fetch.ErrLoadTimeout, url)
		}
		return nil, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if body == nil {
		return nil, fmt.Errorf("fetch %s: empty response", url)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
