package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultNotifyAttempts   = 3
	DefaultNotifyRetryDelay = 2 * time.Second
)

// ValidateRecipient performs the minimal syntactic check done before any mail is sent.
func ValidateRecipient(addr string) error {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "@") || !strings.Contains(addr, ".") {
		return &ValidationError{Field: "recipient", Value: addr, Message: "email address must contain '@' and '.'"}
	}
	return nil
}

// Notifier sends status emails, retrying the whole send a fixed number of times.
type Notifier struct {
	transport repository.MailTransport
	attempts  int
	delay     time.Duration
	clock     clock
	logger    *zap.Logger
}

func NewNotifier(transport repository.MailTransport, attempts int, delay time.Duration, logger *zap.Logger) *Notifier {
	if attempts <= 0 {
		attempts = DefaultNotifyAttempts
	}
	if delay < 0 {
		delay = DefaultNotifyRetryDelay
	}
	return &Notifier{transport: transport, attempts: attempts, delay: delay, clock: realClock{}, logger: logger}
}

// Notify emails subject and body to recipient. A malformed recipient is rejected with a
// ValidationError before anything is sent. Delivery failures are retried, then logged;
// they are never returned.
func (n *Notifier) Notify(ctx context.Context, subject, body, recipient string) error {
	if err := ValidateRecipient(recipient); err != nil {
		return err
	}
	msg := repository.Message{To: strings.TrimSpace(recipient), Subject: subject, Body: body}

	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		err := n.transport.Send(ctx, msg)
		if err == nil {
			metrics.NotificationAttempts.WithLabelValues("success").Inc()
			n.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", subject), zap.Int("attempt", attempt))
			return nil
		}
		lastErr = &TransportError{Recipient: msg.To, Attempt: attempt, Cause: err}
		metrics.NotificationAttempts.WithLabelValues("failure").Inc()
		n.logger.Warn("Error sending email", zap.Int("attempt", attempt), zap.Error(lastErr))

		if attempt < n.attempts {
			if err := n.clock.Sleep(ctx, n.delay); err != nil {
				break
			}
		}
	}

	n.logger.Error("Giving up on email notification", zap.String("to", msg.To), zap.Int("attempts", n.attempts), zap.Error(lastErr))
	return nil
}

// ReportFailure sends the standard failure report for errors raised outside a run,
// such as a storage backend that is down at startup.
func (n *Notifier) ReportFailure(ctx context.Context, recipient string, cause error) error {
	return n.Notify(ctx, failureSubject, failureBody(cause), recipient)
}
