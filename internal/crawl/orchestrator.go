// Package crawl orchestrates full crawl runs over the listing site: paging,
// detail enrichment, persistence, and run lifecycle tracking.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/fetch"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/metrics"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/progress"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/scrape"
	"github.com/nexthing8-cmd/okky-jobs-backend/internal/store"
)

// Config tunes one Crawler.
type Config struct {
	// BaseURL is the listing page for page 1; further pages add ?page=N.
	BaseURL string
	// Delay is the courtesy pause between successive page fetches.
	Delay time.Duration
}

// Crawler drives complete crawl runs. It holds no per-run state; every run
// carries its own run id, fetcher session, and rate limiter.
type Crawler struct {
	cfg     Config
	fetcher fetch.Factory
	listing *scrape.ListingExtractor
	details *scrape.DetailExtractor
	repo    store.JobRepository
	runs    store.RunRepository
	emitter progress.Emitter
	logger  *zap.Logger
}

// New assembles a Crawler.
func New(cfg Config, factory fetch.Factory, repo store.JobRepository, runs store.RunRepository, emitter progress.Emitter, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: factory,
		listing: scrape.NewListingExtractor(),
		details: scrape.NewDetailExtractor(),
		repo:    repo,
		runs:    runs,
		emitter: emitter,
		logger:  logger,
	}
}

// Run executes one complete crawl. It claims the run record, walks every
// listing page, enriches each summary with its detail page, and finalizes
// the record exactly once. A page or row that fails is reported and skipped;
// only claim failures and infrastructure errors abort the run.
func (c *Crawler) Run(ctx context.Context) error {
	startedAt := time.Now()
	runID, err := c.runs.Start(ctx, startedAt)
	if err != nil {
		return fmt.Errorf("start crawl run: %w", err)
	}

	log := c.logger.With(zap.Int64("run_id", runID), zap.String("trace_id", uuid.NewString()))
	c.emit(runID, progress.KindInfo, "크롤링을 시작합니다", 0)

	processed, err := c.crawl(ctx, runID, log)

	status := store.RunCompleted
	if err != nil {
		status = store.RunFailed
		c.emit(runID, progress.KindError, fmt.Sprintf("크롤링 실패: %v", err), 0)
		log.Error("crawl run failed", zap.Error(err))
	} else {
		c.emit(runID, progress.KindProgress, "크롤링 완료", 100)
		c.emit(runID, progress.KindSuccess, fmt.Sprintf("크롤링 완료: 총 %d건 수집", processed), 0)
	}

	endedAt := time.Now()
	if finErr := c.runs.Finish(ctx, runID, status, endedAt, processed); finErr != nil {
		// ErrRunFinished means someone already finalized this run; the stored
		// terminal record wins.
		if !errors.Is(finErr, store.ErrRunFinished) {
			log.Error("finalize crawl run", zap.Error(finErr))
		}
		if err == nil {
			err = finErr
		}
	}
	metrics.RunFinished(string(status), endedAt.Sub(startedAt))

	if err != nil {
		return fmt.Errorf("crawl run %d: %w", runID, err)
	}
	log.Info("crawl run completed",
		zap.Int64("processed", processed),
		zap.Duration("took", endedAt.Sub(startedAt)))
	return nil
}

// crawl runs the three phases in order: paginate every listing page
// accumulating summaries, master-upsert the full set once, then walk the
// detail pages. A detail-phase failure therefore never costs summaries from
// pages that were already paginated.
func (c *Crawler) crawl(ctx context.Context, runID int64, log *zap.Logger) (int64, error) {
	f, err := c.fetcher()
	if err != nil {
		return 0, fmt.Errorf("open fetcher: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warn("close fetcher", zap.Error(cerr))
		}
	}()

	limiter := newLimiter(c.cfg.Delay)

	summaries, processed, err := c.collectSummaries(ctx, f, limiter, runID, log)
	if err != nil {
		return processed, err
	}

	if err := c.persistSummaries(ctx, runID, summaries, log); err != nil {
		return processed, err
	}

	if err := c.enrichDetails(ctx, f, limiter, runID, summaries, log); err != nil {
		return processed, err
	}
	return processed, nil
}

// collectSummaries paginates through every listing page and returns the
// accumulated summary set. Processed counts every collected summary, not
// just the ones that later persist.
func (c *Crawler) collectSummaries(ctx context.Context, f fetch.Fetcher, limiter *rate.Limiter, runID int64, log *zap.Logger) ([]jobs.Summary, int64, error) {
	first, err := c.fetchListing(ctx, f, limiter, runID, 1, true, log)
	if err != nil {
		return nil, 0, err
	}
	totalPages := scrape.TotalPages(first.TotalCount, len(first.Summaries))
	c.emit(runID, progress.KindInfo,
		fmt.Sprintf("전체 %d건, %d페이지를 수집합니다", first.TotalCount, totalPages), 0)

	all := first.Summaries
	processed := int64(len(all))
	c.emit(runID, progress.KindProgress,
		fmt.Sprintf("1/%d 페이지 수집 중", totalPages), 0)
	if err := c.runs.UpdateProcessed(ctx, runID, processed); err != nil {
		return nil, processed, fmt.Errorf("record processed count: %w", err)
	}

	for page := 2; page <= totalPages; page++ {
		c.emit(runID, progress.KindProgress,
			fmt.Sprintf("%d/%d 페이지 수집 중", page, totalPages), (page-1)*100/totalPages)

		lp, err := c.fetchListing(ctx, f, limiter, runID, page, false, log)
		if err != nil {
			return nil, processed, err
		}
		all = append(all, lp.Summaries...)
		processed = int64(len(all))
		if err := c.runs.UpdateProcessed(ctx, runID, processed); err != nil {
			return nil, processed, fmt.Errorf("record processed count: %w", err)
		}
	}
	return all, processed, nil
}

// fetchListing loads and parses one listing page. A navigation timeout is
// logged and degrades to an empty page so the run keeps its progress.
func (c *Crawler) fetchListing(ctx context.Context, f fetch.Fetcher, limiter *rate.Limiter, runID int64, page int, isFirst bool, log *zap.Logger) (scrape.ListingPage, error) {
	if err := limiter.Wait(ctx); err != nil {
		return scrape.ListingPage{}, fmt.Errorf("rate limit wait: %w", err)
	}
	pageURL := c.pageURL(page)
	doc, err := f.Fetch(ctx, pageURL)
	if errors.Is(err, fetch.ErrLoadTimeout) {
		metrics.FetchTimeout("listing")
		c.emit(runID, progress.KindError, fmt.Sprintf("%d페이지 로딩 시간 초과", page), 0)
		log.Warn("listing page timed out", zap.Int("page", page))
		return scrape.ListingPage{}, nil
	}
	if err != nil {
		return scrape.ListingPage{}, fmt.Errorf("fetch listing page %d: %w", page, err)
	}
	metrics.PageFetched("listing")

	lp, err := c.listing.Extract(doc, pageURL, isFirst)
	if err != nil {
		return scrape.ListingPage{}, fmt.Errorf("extract listing page %d: %w", page, err)
	}
	return lp, nil
}

// persistSummaries master-upserts the full accumulated set in one batch.
// Row failures are surfaced as warnings; the batch itself only fails on
// infrastructure errors.
func (c *Crawler) persistSummaries(ctx context.Context, runID int64, batch []jobs.Summary, log *zap.Logger) error {
	if len(batch) == 0 {
		c.emit(runID, progress.KindInfo, "수집된 공고가 없습니다", 0)
		return nil
	}
	res, err := c.repo.UpsertSummaries(ctx, batch)
	metrics.RowsUpserted("okky_jobs", res.Saved)
	metrics.RowsFailed("okky_jobs", len(res.Failed))
	if err != nil {
		return fmt.Errorf("persist summaries: %w", err)
	}
	for _, rowErr := range res.Failed {
		c.emit(runID, progress.KindWarning,
			fmt.Sprintf("공고 저장 실패: %s", rowErr.Link), 0)
		log.Warn("summary row failed", zap.String("link", rowErr.Link), zap.String("error", rowErr.Err))
	}
	c.emit(runID, progress.KindSuccess,
		fmt.Sprintf("공고 %d건 저장 완료", res.Saved), 0)
	return nil
}

// enrichDetails visits each summary's detail page. Timeouts and extraction
// failures skip the item; the pass carries on.
func (c *Crawler) enrichDetails(ctx context.Context, f fetch.Fetcher, limiter *rate.Limiter, runID int64, batch []jobs.Summary, log *zap.Logger) error {
	for _, sum := range batch {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		doc, err := f.Fetch(ctx, sum.Link)
		if errors.Is(err, fetch.ErrLoadTimeout) {
			metrics.FetchTimeout("detail")
			c.emit(runID, progress.KindError, fmt.Sprintf("상세 페이지 로딩 시간 초과: %s", sum.Link), 0)
			log.Warn("detail page timed out", zap.String("link", sum.Link))
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch detail %s: %w", sum.Link, err)
		}
		metrics.PageFetched("detail")

		detail, contact := c.details.Extract(doc, sum.Link)
		contactID, err := c.repo.UpsertContact(ctx, contact)
		if err != nil {
			metrics.RowsFailed("okky_job_contacts", 1)
			c.emit(runID, progress.KindWarning, fmt.Sprintf("담당자 저장 실패: %s", sum.Link), 0)
			log.Warn("contact upsert failed", zap.String("link", sum.Link), zap.Error(err))
			contactID = nil
		} else if contactID != nil {
			metrics.RowsUpserted("okky_job_contacts", 1)
		}
		if err := c.repo.UpsertDetail(ctx, detail, contactID); err != nil {
			metrics.RowsFailed("okky_job_details", 1)
			c.emit(runID, progress.KindWarning, fmt.Sprintf("상세 저장 실패: %s", sum.Link), 0)
			log.Warn("detail upsert failed", zap.String("link", sum.Link), zap.Error(err))
			continue
		}
		metrics.RowsUpserted("okky_job_details", 1)
	}
	return nil
}

func (c *Crawler) pageURL(page int) string {
	if page <= 1 {
		return c.cfg.BaseURL
	}
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return c.cfg.BaseURL
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Crawler) emit(runID int64, kind progress.Kind, msg string, percent int) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		RunID:   runID,
		Kind:    kind,
		Message: msg,
		Percent: percent,
		TS:      time.Now(),
	})
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
