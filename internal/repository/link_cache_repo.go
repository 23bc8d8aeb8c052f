package repository

import (
	"context"
	"time"

	"github.com/user/headline-scraper/internal/entity"
)

// LinkStatusCache remembers link probe outcomes between runs.
type LinkStatusCache interface {
	// Get returns the cached status of url and whether one was found.
	Get(ctx context.Context, url string) (entity.LinkStatus, bool, error)
	// Set caches the status of url for the given expiry.
	Set(ctx context.Context, url string, status entity.LinkStatus, expiry time.Duration) error
}
