package repository

import "context"

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MailTransport delivers a message through an authenticated mail server.
type MailTransport interface {
	Send(ctx context.Context, msg Message) error
}
