package smtp

import (
	"context"
	"fmt"
	"time"

	"github.com/user/headline-scraper/internal/repository"
	"github.com/wneessen/go-mail"
)

const defaultDialTimeout = 30 * time.Second

// Config holds the sender account and server. Port 587 uses STARTTLS, 465 implicit TLS.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
	Timeout  time.Duration

	// TLSOptional allows plaintext delivery when the server does not offer STARTTLS.
	TLSOptional bool
}

// Transport sends mail through an authenticated SMTP server, one connection per message.
type Transport struct {
	cfg Config
}

func NewTransport(cfg Config) *Transport {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) Send(ctx context.Context, msg repository.Message) error {
	m := mail.NewMsg()
	if err := m.From(t.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(t.cfg.Host, t.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func (t *Transport) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
	}
	switch {
	case t.cfg.Port == 465:
		opts = append(opts, mail.WithSSLPort(false))
	case t.cfg.TLSOptional:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	return opts
}
