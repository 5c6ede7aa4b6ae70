package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/edix/internal/ir"
)

// Sink receives notifications.
type Sink interface {
	Deliver(ctx context.Context, n ir.Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n ir.Notification) error

func (f SinkFunc) Deliver(ctx context.Context, n ir.Notification) error {
	return f(ctx, n)
}

// Clock supplies notification timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Notifier implements engine.Notifier on top of a Sink.
type Notifier struct {
	sink   Sink
	clock  Clock
	logger *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// New creates a Notifier delivering to sink.
func New(sink Sink, opts ...Option) *Notifier {
	n := &Notifier{sink: sink, clock: systemClock{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify builds the notification for rec and delivers it.
// A record without a related entity has nowhere to log and is skipped.
func (n *Notifier) Notify(ctx context.Context, rec *ir.ExchangeRecord, level ir.Level, message string) {
	if rec.Related.IsZero() {
		return
	}
	note := ir.Notification{
		RecordID: rec.ID,
		Backend:  rec.Backend,
		Type:     rec.Type,
		Related:  rec.Related,
		Level:    level,
		Message:  message,
		State:    rec.State,
		Error:    rec.ErrorText(),
		At:       n.clock.Now(),
	}
	if err := n.sink.Deliver(ctx, note); err != nil {
		n.logger.Warn("notification not delivered",
			"record", rec.ID,
			"related", rec.Related.String(),
			"level", level,
			"error", err,
		)
	}
}

// Multi delivers to every sink and joins their errors.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, n ir.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
