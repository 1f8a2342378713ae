// Package alerts delivers urgent escalations outside the chat: an audible cue
// and a permission-gated platform notification. Delivery is fire-and-forget;
// failures are logged and never reach the conversation.
package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// NotificationTitle heads every platform notification.
const NotificationTitle = "Urgent Escalation"

const defaultTimeout = 10 * time.Second

// Dispatcher implements assistant.AlertSink.
type Dispatcher struct {
	tone     Tone
	notifier SystemNotifier
	timeout  time.Duration
	logger   *logging.Logger
	tracer   trace.Tracer
	wg       sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each delivery.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a Dispatcher. Either collaborator may be nil.
func NewDispatcher(tone Tone, notifier SystemNotifier, logger *logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Dispatcher{
		tone:     tone,
		notifier: notifier,
		timeout:  defaultTimeout,
		logger:   logger,
		tracer:   otel.Tracer("radassist/alerts"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ assistant.AlertSink = (*Dispatcher)(nil)

// Escalated implements assistant.AlertSink. It returns immediately.
func (d *Dispatcher) Escalated(ctx context.Context, n assistant.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(context.WithoutCancel(ctx), n)
	}()
}

// Wait blocks until every dispatched alert has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n assistant.Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	ctx, span := d.tracer.Start(ctx, "alerts.dispatch", trace.WithAttributes(
		attribute.Int64("alerts.notification_id", n.ID),
		attribute.String("alerts.kind", string(n.Kind)),
	))
	defer span.End()

	if d.tone != nil {
		d.guard("tone", n, func() error { return d.tone.Play() })
	}
	if d.notifier != nil {
		d.guard("notifier", n, func() error {
			return d.notifier.Show(ctx, NotificationTitle, Body(n))
		})
	}
}

// guard runs fn, discarding errors and panics.
func (d *Dispatcher) guard(channel string, n assistant.Notification, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("alerts: delivery panicked", "channel", channel, "notification_id", n.ID, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		d.logger.Debug("alerts: delivery failed", "channel", channel, "notification_id", n.ID, "error", err)
	}
}

// Body is the platform notification text for n.
func Body(n assistant.Notification) string {
	return n.Kind.Label()
}
