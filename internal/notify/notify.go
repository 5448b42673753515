// Package notify delivers workflow notifications to principals. Delivery is
// fire-and-forget: failures are logged and counted, never returned to the
// workflow that triggered them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Notification templates.
const (
	TemplateRequestAccess   = "request_access"
	TemplateRequestApproved = "request_approved"
	TemplateRequestRejected = "request_rejected"
)

const defaultSendTimeout = 30 * time.Second

// Sender delivers one notification to one principal.
type Sender interface {
	Send(ctx context.Context, template string, recipient uuid.UUID, data map[string]any) error
}

// Notifier is what workflows depend on to emit notifications.
type Notifier interface {
	Notify(ctx context.Context, template string, recipients []uuid.UUID, data map[string]any)
}

// Dispatcher fans notifications out to a Sender in the background.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering through sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: defaultSendTimeout,
	}
}

// Notify queues template for every recipient and returns immediately. The
// caller's cancellation does not abort delivery.
func (d *Dispatcher) Notify(ctx context.Context, template string, recipients []uuid.UUID, data map[string]any) {
	ctx = context.WithoutCancel(ctx)

	for _, recipient := range recipients {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.send(ctx, template, recipient, data)
		}()
	}
}

func (d *Dispatcher) send(ctx context.Context, template string, recipient uuid.UUID, data map[string]any) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	attrs := metric.WithAttributes(attribute.String("template", template))

	if err := d.sender.Send(ctx, template, recipient, data); err != nil {
		telemetry.GetMetrics().NotificationFailuresTotal.Add(ctx, 1, attrs)
		log.Warn().
			Err(err).
			Str("template", template).
			Str("recipient", recipient.String()).
			Msg("Failed to send notification")
		return
	}

	telemetry.GetMetrics().NotificationsSentTotal.Add(ctx, 1, attrs)
}

// Wait blocks until every queued notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

// Send logs the notification.
func (LogSender) Send(ctx context.Context, template string, recipient uuid.UUID, data map[string]any) error {
	log.Info().
		Str("template", template).
		Str("recipient", recipient.String()).
		Fields(data).
		Msg("Notification")
	return nil
}
