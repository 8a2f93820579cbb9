package sink

import (
	"context"
	"errors"

	"github.com/actionsum/focuslens/internal/ports"
)

// Sink is a notifier that holds resources until closed.
type Sink interface {
	ports.Notifier
	Close(ctx context.Context) error
}

// NoOp discards notifications. Used when no sink is configured or a sink failed to start.
type NoOp struct{}

func NewNoOp() *NoOp { return &NoOp{} }

func (NoOp) Notify(ctx context.Context, n ports.Notification) {}

func (NoOp) Close(ctx context.Context) error { return nil }

// Multi fans a notification out to several sinks in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n ports.Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
