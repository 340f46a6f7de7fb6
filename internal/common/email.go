package common

import (
	"context"

	"github.com/rs/zerolog"
)

// Email is an outgoing message. Attachments are keyed by file name.
type Email struct {
	To          string
	Subject     string
	Text        string
	Attachments map[string][]byte
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// InMemoryMailer records messages, used by tests.
type InMemoryMailer struct {
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemoryMailer) Send(_ context.Context, msg Email) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, msg)
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	Logger zerolog.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(_ context.Context, msg Email) error {
	names := make([]string, 0, len(msg.Attachments))
	for name := range msg.Attachments {
		names = append(names, name)
	}
	m.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Strs("attachments", names).
		Msg("email_outbox")
	return nil
}
