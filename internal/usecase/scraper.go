package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/metrics"
	"go.uber.org/zap"
)

const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight);`

// ScrapeOptions are the per-run parameters of a scrape.
type ScrapeOptions struct {
	TargetURL        string
	Pages            int
	HeadlinesPerPage int
}

// ScrapeResult is what a scrape produced before export.
type ScrapeResult struct {
	Records []entity.HeadlineRecord
	Pages   int
	Skipped int
	// Interrupted is set when a page after the first failed or pagination broke off early.
	Interrupted error
}

// ScraperConfig wires a Scraper.
type ScraperConfig struct {
	Browser     repository.Browser
	Container   repository.Locator
	Waiter      *Waiter
	Extractor   *Extractor
	Paginator   *Paginator
	LinkChecker *LinkChecker // nil disables link validation
	ScrollTimes int
	ScrollPause time.Duration
	Logger      *zap.Logger
}

// Scraper drives one browser session through navigation, waiting, extraction and pagination.
type Scraper struct {
	browser     repository.Browser
	container   repository.Locator
	waiter      *Waiter
	extractor   *Extractor
	paginator   *Paginator
	links       *LinkChecker
	scrollTimes int
	scrollPause time.Duration
	clock       clock
	logger      *zap.Logger
}

func NewScraper(cfg ScraperConfig) *Scraper {
	return &Scraper{
		browser:     cfg.Browser,
		container:   cfg.Container,
		waiter:      cfg.Waiter,
		extractor:   cfg.Extractor,
		paginator:   cfg.Paginator,
		links:       cfg.LinkChecker,
		scrollTimes: cfg.ScrollTimes,
		scrollPause: cfg.ScrollPause,
		clock:       realClock{},
		logger:      cfg.Logger,
	}
}

// Scrape opens a session, collects headlines from up to opts.Pages pages and releases the session.
// It fails only when nothing could be collected; problems on later pages end the scrape early
// and are reported through ScrapeResult.Interrupted.
func (s *Scraper) Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error) {
	if opts.Pages <= 0 || opts.HeadlinesPerPage <= 0 {
		return nil, &ValidationError{Field: "scrape options", Value: fmt.Sprintf("%d pages x %d", opts.Pages, opts.HeadlinesPerPage), Message: "pages and headlines per page must be positive"}
	}

	session, err := s.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("Failed to close browser session", zap.Error(err))
		}
	}()

	if err := session.Navigate(ctx, opts.TargetURL); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", opts.TargetURL, err)
	}
	s.logger.Info("Opened news site", zap.String("url", opts.TargetURL))

	result := &ScrapeResult{}
	for page := 1; page <= opts.Pages; page++ {
		containers, err := s.loadPage(ctx, session)
		if err != nil {
			if len(result.Records) == 0 {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			s.logger.Warn("Stopping after a page failed to load", zap.Int("page", page), zap.Error(err))
			result.Interrupted = err
			break
		}
		if len(containers) > opts.HeadlinesPerPage {
			containers = containers[:opts.HeadlinesPerPage]
		}

		pageURL, err := session.CurrentURL(ctx)
		if err != nil || pageURL == "" {
			pageURL = opts.TargetURL
		}

		extracted, err := s.extractor.Extract(ctx, pageURL, containers, len(result.Records)+1)
		if err != nil {
			return nil, err
		}
		if s.links != nil {
			s.links.Annotate(ctx, extracted.Records)
		}
		result.Records = append(result.Records, extracted.Records...)
		result.Skipped += extracted.Skipped
		result.Pages = page
		metrics.PagesScraped.Inc()
		s.logger.Info("Extracted page", zap.Int("page", page),
			zap.Int("headlines", len(extracted.Records)), zap.Int("skipped", extracted.Skipped))

		if page == opts.Pages {
			break
		}
		advanced, err := s.paginator.Advance(ctx, session, containers[0])
		if err != nil {
			s.logger.Warn("Pagination stopped early", zap.Int("page", page), zap.Error(err))
			result.Interrupted = err
			break
		}
		if !advanced {
			break
		}
	}
	return result, nil
}

// loadPage waits for the first container, optionally scrolls to trigger lazy loading,
// and returns every container currently on the page.
func (s *Scraper) loadPage(ctx context.Context, session repository.Session) ([]repository.Element, error) {
	if _, err := s.waiter.WaitForElement(ctx, session, s.container); err != nil {
		return nil, err
	}

	for i := 0; i < s.scrollTimes; i++ {
		if err := session.Execute(ctx, scrollToBottomJS); err != nil {
			s.logger.Warn("Scroll failed", zap.Int("iteration", i+1), zap.Error(err))
			break
		}
		if err := s.clock.Sleep(ctx, s.scrollPause); err != nil {
			return nil, err
		}
	}

	containers, err := session.FindAll(ctx, s.container)
	if err != nil {
		return nil, fmt.Errorf("find containers %q: %w", s.container, err)
	}
	if len(containers) == 0 {
		return nil, fmt.Errorf("containers %q disappeared after load: %w", s.container, repository.ErrElementNotFound)
	}
	return containers, nil
}

// Summary renders a short human-readable report of the result.
func (r *ScrapeResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pages scraped: %d\nHeadlines extracted: %d\n", r.Pages, len(r.Records))
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Containers skipped: %d\n", r.Skipped)
	}
	if r.Interrupted != nil {
		fmt.Fprintf(&b, "Stopped early: %v\n", r.Interrupted)
	}
	return b.String()
}
