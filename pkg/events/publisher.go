package events

import (
	"context"
	"errors"
)

// EventPublisher is the interface for publishing decode events.
type EventPublisher interface {
	PublishDecoded(ctx context.Context, event *DecodeCompletedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishDecoded is a no-op.
func (p *NoOpPublisher) PublishDecoded(_ context.Context, _ *DecodeCompletedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *DecodeCompletedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *DecodeCompletedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishDecoded calls the callback.
func (p *CallbackPublisher) PublishDecoded(ctx context.Context, event *DecodeCompletedEvent) error {
	return p.callback(ctx, event)
}

// MultiPublisher delivers every event to each of its publishers. All
// publishers are tried; their errors are joined.
type MultiPublisher []EventPublisher

// PublishDecoded fans the event out.
func (m MultiPublisher) PublishDecoded(ctx context.Context, event *DecodeCompletedEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishDecoded(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
