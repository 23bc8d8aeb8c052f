package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/metrics"
	"github.com/user/headline-scraper/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultExtractAttempts = 3
	DefaultRetryDelay      = time.Second
)

var errEmptyHeadline = errors.New("headline text is empty")

// FieldLocators tell the Extractor where the fields of a headline live, relative to its container.
type FieldLocators struct {
	// Headline selects the element holding the headline text. Empty means the container itself.
	Headline repository.Locator
	// Link selects the anchor. Empty means the container's own href, if any.
	Link repository.Locator
	// Timestamp selects the optional publication time. Empty disables it.
	Timestamp repository.Locator
}

// ExtractResult is the outcome of extracting one page worth of containers.
type ExtractResult struct {
	Records []entity.HeadlineRecord
	Skipped int
}

// Extractor reads headline records out of container elements, retrying each container a bounded number of times.
type Extractor struct {
	fields   FieldLocators
	attempts int
	delay    time.Duration
	clock    clock
	logger   *zap.Logger
}

func NewExtractor(fields FieldLocators, attempts int, delay time.Duration, logger *zap.Logger) *Extractor {
	if attempts <= 0 {
		attempts = DefaultExtractAttempts
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	return &Extractor{fields: fields, attempts: attempts, delay: delay, clock: realClock{}, logger: logger}
}

// Extract turns containers into records ranked from firstRank upwards. A container that fails
// every attempt is logged and skipped. The only error returned is a cancelled context.
func (e *Extractor) Extract(ctx context.Context, pageURL string, containers []repository.Element, firstRank int) (ExtractResult, error) {
	var result ExtractResult
	for i, container := range containers {
		rec, err := e.extractWithRetry(ctx, pageURL, i, container)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		if err != nil {
			result.Skipped++
			metrics.ExtractionAttempts.WithLabelValues("skipped").Inc()
			e.logger.Error("Skipping headline container after exhausting retries",
				zap.Int("index", i), zap.Int("attempts", e.attempts), zap.Error(err))
			continue
		}

		rec.Rank = firstRank + len(result.Records)
		result.Records = append(result.Records, rec)
		metrics.HeadlinesExtracted.Inc()
		e.logger.Info(fmt.Sprintf("%d. %s (%s)", rec.Rank, rec.Headline, rec.Link))
	}
	return result, nil
}

func (e *Extractor) extractWithRetry(ctx context.Context, pageURL string, index int, container repository.Element) (entity.HeadlineRecord, error) {
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		rec, err := e.extractOne(ctx, pageURL, container)
		if err == nil {
			metrics.ExtractionAttempts.WithLabelValues("success").Inc()
			return rec, nil
		}
		lastErr = &ExtractionError{Index: index, Attempt: attempt, Cause: err}

		if attempt == e.attempts {
			break
		}
		metrics.ExtractionAttempts.WithLabelValues("retry").Inc()
		e.logger.Warn("Error extracting data from a headline, retrying",
			zap.Int("index", index), zap.Int("attempt", attempt), zap.Error(err))
		if err := e.clock.Sleep(ctx, e.delay); err != nil {
			return entity.HeadlineRecord{}, err
		}
	}
	return entity.HeadlineRecord{}, lastErr
}

func (e *Extractor) extractOne(ctx context.Context, pageURL string, container repository.Element) (entity.HeadlineRecord, error) {
	headlineEl := container
	if e.fields.Headline != "" {
		el, err := container.Find(ctx, e.fields.Headline)
		if err != nil {
			return entity.HeadlineRecord{}, fmt.Errorf("headline %q: %w", e.fields.Headline, err)
		}
		headlineEl = el
	}
	text, err := headlineEl.Text(ctx)
	if err != nil {
		return entity.HeadlineRecord{}, fmt.Errorf("headline text: %w", err)
	}
	text = collapseSpace(text)
	if text == "" {
		return entity.HeadlineRecord{}, errEmptyHeadline
	}

	link, err := e.link(ctx, pageURL, container)
	if err != nil {
		return entity.HeadlineRecord{}, err
	}

	return entity.HeadlineRecord{
		Headline:      text,
		Link:          link,
		PublishedTime: e.publishedTime(ctx, container),
	}, nil
}

func (e *Extractor) link(ctx context.Context, pageURL string, container repository.Element) (string, error) {
	anchor := container
	if e.fields.Link != "" {
		el, err := container.Find(ctx, e.fields.Link)
		if errors.Is(err, repository.ErrElementNotFound) {
			return entity.NoLinkAvailable, nil
		}
		if err != nil {
			return "", fmt.Errorf("link %q: %w", e.fields.Link, err)
		}
		anchor = el
	}

	href, ok, err := anchor.Attribute(ctx, "href")
	if err != nil {
		return "", fmt.Errorf("link href: %w", err)
	}
	if !ok {
		return entity.NoLinkAvailable, nil
	}
	if resolved := utils.ResolveLink(pageURL, href); resolved != "" {
		return resolved, nil
	}
	return entity.NoLinkAvailable, nil
}

// publishedTime never fails the record: any problem degrades to the sentinel.
func (e *Extractor) publishedTime(ctx context.Context, container repository.Element) string {
	if e.fields.Timestamp == "" {
		return entity.UnknownPublishedTime
	}
	el, err := container.Find(ctx, e.fields.Timestamp)
	if err != nil {
		return entity.UnknownPublishedTime
	}
	text, err := el.Text(ctx)
	if err != nil {
		return entity.UnknownPublishedTime
	}
	if text = collapseSpace(text); text != "" {
		return text
	}
	return entity.UnknownPublishedTime
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
