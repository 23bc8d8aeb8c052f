package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/headline-scraper/internal/repository"
	"go.uber.org/zap"
)

// Paginator moves a session to the next page of results.
type Paginator struct {
	next   repository.Locator
	waiter *Waiter
	logger *zap.Logger
}

// NewPaginator creates a Paginator. An empty next locator disables pagination.
func NewPaginator(next repository.Locator, waiter *Waiter, logger *zap.Logger) *Paginator {
	return &Paginator{next: next, waiter: waiter, logger: logger}
}

// Advance clicks the "next" control and waits for marker, an element of the current page,
// to go stale. It reports false with no error when there is no next page.
func (p *Paginator) Advance(ctx context.Context, s repository.Session, marker repository.Element) (bool, error) {
	if p.next == "" {
		return false, nil
	}

	control, err := s.Find(ctx, p.next)
	if errors.Is(err, repository.ErrElementNotFound) {
		p.logger.Info("No 'next' control found, reached the last page", zap.String("selector", string(p.next)))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("locate next control: %w", err)
	}

	if err := control.Click(ctx); err != nil {
		return false, fmt.Errorf("click next control: %w", err)
	}
	if marker == nil {
		return true, nil
	}
	if err := p.waiter.WaitStale(ctx, marker); err != nil {
		return false, err
	}
	return true, nil
}
