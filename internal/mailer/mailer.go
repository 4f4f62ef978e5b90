// Package mailer queues outbound email. No implementation delivers
// anything; delivery belongs to a downstream worker.
package mailer

import (
	"context"
	"log/slog"
	"time"

	"github.com/trilabs/tri-backend/pkg/messaging"
	"github.com/trilabs/tri-backend/pkg/messaging/events"
)

// EmailMessage is an outbound email as accepted by the API.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer enqueues email for later delivery.
type Mailer interface {
	Enqueue(ctx context.Context, msg EmailMessage) error
}

// QueueMailer publishes queued emails to JetStream for a delivery worker.
type QueueMailer struct {
	pub messaging.Publisher
}

func NewQueueMailer(pub messaging.Publisher) *QueueMailer {
	return &QueueMailer{pub: pub}
}

func (m *QueueMailer) Enqueue(ctx context.Context, msg EmailMessage) error {
	return m.pub.Publish(ctx, events.EmailQueuedEvent{
		To:           msg.To,
		EmailSubject: msg.Subject,
		HTML:         msg.HTML,
		Text:         msg.Text,
		QueuedAt:     time.Now().UTC(),
	})
}

// LogMailer is the fallback when no queue is configured: it logs the
// message and reports success.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "mailer")}
}

func (m *LogMailer) Enqueue(ctx context.Context, msg EmailMessage) error {
	m.logger.InfoContext(ctx, "Email queued (no delivery backend configured)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
