// Package notify delivers outbound messages to an address.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a message to an address.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records deliveries in the log instead of sending them. Bodies may
// contain one-time codes, so only the envelope is logged.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer builds a mailer for environments without SMTP.
func NewLogMailer(from string, logger *zap.Logger) *LogMailer {
	return &LogMailer{from: from, logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("mail suppressed; no smtp configured",
		zap.String("from", m.from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
