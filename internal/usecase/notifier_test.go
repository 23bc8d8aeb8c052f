package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/headline-scraper/internal/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestNotifier(transport repository.MailTransport, clock *fakeClock) (*Notifier, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewNotifier(transport, 3, 2*time.Second, zap.New(core))
	n.clock = clock
	return n, logs
}

func TestNotifier_SendsOnFirstAttempt(t *testing.T) {
	transport := &fakeTransport{}
	n, _ := newTestNotifier(transport, newFakeClock())

	err := n.Notify(context.Background(), "Web Scraping Completed Successfully", "done", " ops@example.com ")
	require.NoError(t, err)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, repository.Message{To: "ops@example.com", Subject: "Web Scraping Completed Successfully", Body: "done"}, transport.sent[0])
}

func TestNotifier_GivesUpAfterThreeFailures(t *testing.T) {
	clock := newFakeClock()
	transport := failingTransport(3)
	n, logs := newTestNotifier(transport, clock)

	err := n.Notify(context.Background(), "Web Scraping Error", "boom", "ops@example.com")
	assert.NoError(t, err, "delivery failures are contained")
	assert.Equal(t, 3, transport.calls)
	assert.Empty(t, transport.sent)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.Sleeps())

	assert.Equal(t, 3, logs.FilterMessage("Error sending email").Len())
	final := logs.FilterMessage("Giving up on email notification").All()
	require.Len(t, final, 1)
	assert.Equal(t, zap.ErrorLevel, final[0].Level)
}

func TestNotifier_RecoversOnRetry(t *testing.T) {
	transport := &fakeTransport{errs: []error{errors.New("421 service not available")}}
	n, logs := newTestNotifier(transport, newFakeClock())

	require.NoError(t, n.Notify(context.Background(), "subject", "body", "ops@example.com"))
	assert.Equal(t, 2, transport.calls)
	assert.Len(t, transport.sent, 1)
	assert.Zero(t, logs.FilterMessage("Giving up on email notification").Len())
}

func TestNotifier_InvalidRecipientSendsNothing(t *testing.T) {
	for _, addr := range []string{"", "ops", "ops@localhost", "ops.example.com"} {
		t.Run(addr, func(t *testing.T) {
			transport := &fakeTransport{}
			n, _ := newTestNotifier(transport, newFakeClock())

			err := n.Notify(context.Background(), "subject", "body", addr)
			assert.ErrorIs(t, err, repository.ErrValidation)
			assert.Zero(t, transport.calls)
		})
	}
}

func TestNotifier_StopsRetryingWhenContextDone(t *testing.T) {
	transport := failingTransport(3)
	n, _ := newTestNotifier(transport, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, n.Notify(ctx, "subject", "body", "ops@example.com"))
	assert.Equal(t, 1, transport.calls)
}

func TestNewNotifier_Defaults(t *testing.T) {
	n := NewNotifier(&fakeTransport{}, 0, -1, zap.NewNop())
	assert.Equal(t, DefaultNotifyAttempts, n.attempts)
	assert.Equal(t, DefaultNotifyRetryDelay, n.delay)
}

func TestValidateRecipient(t *testing.T) {
	assert.NoError(t, ValidateRecipient("someone@news.example.com"))
	err := ValidateRecipient("nobody")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recipient", verr.Field)
}
