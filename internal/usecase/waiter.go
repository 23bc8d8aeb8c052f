package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/headline-scraper/internal/repository"
)

const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Waiter polls a condition with a fixed interval until it holds or the timeout elapses.
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
	clock    clock
}

// NewWaiter creates a Waiter. Non-positive arguments fall back to the defaults.
func NewWaiter(timeout, interval time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Waiter{timeout: timeout, interval: interval, clock: realClock{}}
}

// Until probes cond until it reports true. Probe errors are treated as "not yet" and
// reported as the cause of the eventual timeout, except for a closed session which
// can never recover.
//
// The last sleep is clipped to the remaining budget so that a timeout is reported
// no earlier than the deadline and no later than one interval after it.
func (w *Waiter) Until(ctx context.Context, what string, cond func(ctx context.Context) (bool, error)) error {
	deadline := w.clock.Now().Add(w.timeout)
	var lastErr error
	for {
		ok, err := cond(ctx)
		switch {
		case err == nil && ok:
			return nil
		case errors.Is(err, repository.ErrSessionClosed):
			return err
		case err != nil:
			lastErr = err
		}

		remaining := deadline.Sub(w.clock.Now())
		if remaining <= 0 {
			return &TimeoutError{What: what, Timeout: w.timeout, Cause: lastErr}
		}
		if err := w.clock.Sleep(ctx, min(w.interval, remaining)); err != nil {
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
	}
}

// WaitForElement blocks until an element matching loc is present in the session's document.
func (w *Waiter) WaitForElement(ctx context.Context, s repository.Session, loc repository.Locator) (repository.Element, error) {
	var found repository.Element
	err := w.Until(ctx, fmt.Sprintf("element %q", loc), func(ctx context.Context) (bool, error) {
		el, err := s.Find(ctx, loc)
		if errors.Is(err, repository.ErrElementNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// WaitStale blocks until el has been detached from the document, which signals that
// the session navigated away from the page el belongs to.
func (w *Waiter) WaitStale(ctx context.Context, el repository.Element) error {
	return w.Until(ctx, "previous page to unload", el.IsStale)
}
