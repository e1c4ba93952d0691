package events

import (
	"context"
	"fmt"
)

const storePublisherLogPrefix = "events:store_publisher"

// Store persists decode events.
type Store interface {
	InsertDecodeEvent(ctx context.Context, event *DecodeCompletedEvent) error
}

// StorePublisher records decode events in a Store.
type StorePublisher struct {
	store Store
}

// NewStorePublisher creates a publisher writing to store.
func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

// PublishDecoded inserts the event.
func (p *StorePublisher) PublishDecoded(ctx context.Context, event *DecodeCompletedEvent) error {
	if err := p.store.InsertDecodeEvent(ctx, event); err != nil {
		return fmt.Errorf("%s - failed to record event: %w", storePublisherLogPrefix, err)
	}
	return nil
}
