package usecase

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/metrics"
	"go.uber.org/zap"
)

const defaultLinkCheckTimeout = 10 * time.Second

// LinkChecker decides whether a headline link is reachable. A link is valid when a GET returns 200.
type LinkChecker struct {
	client    *http.Client
	cache     repository.LinkStatusCache
	ttl       time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewLinkChecker creates a LinkChecker. client and cache may be nil.
func NewLinkChecker(client *http.Client, cache repository.LinkStatusCache, ttl time.Duration, userAgent string, logger *zap.Logger) *LinkChecker {
	if client == nil {
		client = &http.Client{Timeout: defaultLinkCheckTimeout}
	}
	return &LinkChecker{client: client, cache: cache, ttl: ttl, userAgent: userAgent, logger: logger}
}

// Annotate sets LinkStatus on every record.
func (c *LinkChecker) Annotate(ctx context.Context, records []entity.HeadlineRecord) {
	for i := range records {
		records[i].LinkStatus = c.Check(ctx, records[i].Link)
	}
}

// Check returns the status of link, consulting the cache first when one is configured.
func (c *LinkChecker) Check(ctx context.Context, link string) entity.LinkStatus {
	rec := entity.HeadlineRecord{Link: link}
	if !rec.HasLink() {
		return entity.LinkInvalid
	}

	if c.cache != nil {
		status, ok, err := c.cache.Get(ctx, link)
		if err != nil {
			c.logger.Warn("Failed to read link status cache", zap.String("url", link), zap.Error(err))
		} else if ok {
			metrics.LinkChecks.WithLabelValues(string(status), "cache").Inc()
			return status
		}
	}

	status := c.probe(ctx, link)
	metrics.LinkChecks.WithLabelValues(string(status), "probe").Inc()

	// cancellation is not a verdict on the link
	if ctx.Err() != nil {
		return status
	}
	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.Set(ctx, link, status, c.ttl); err != nil {
			c.logger.Warn("Failed to cache link status", zap.String("url", link), zap.Error(err))
		}
	}
	return status
}

func (c *LinkChecker) probe(ctx context.Context, link string) entity.LinkStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return entity.LinkInvalid
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Link probe failed", zap.String("url", link), zap.Error(err))
		return entity.LinkInvalid
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusOK {
		return entity.LinkValid
	}
	return entity.LinkInvalid
}
