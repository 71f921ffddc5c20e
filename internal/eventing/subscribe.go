package eventing

import (
	"context"
	"time"

	"rent-billing/internal/observability/metrics"
)

// ProcessedStore provides per-consumer idempotency.
type ProcessedStore interface {
	HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, consumerName string) error
}

// Subscribe registers handler, wrapped for idempotency when store is set.
func Subscribe(bus Bus, eventType, consumerName string, handler Handler, store ProcessedStore) {
	if store == nil {
		bus.Subscribe(eventType, handler)
		return
	}
	bus.Subscribe(eventType, WrapHandler(consumerName, handler, store))
}

// WrapHandler skips envelopes the consumer already handled and marks new
// ones processed after the handler succeeds.
func WrapHandler(consumerName string, handler Handler, store ProcessedStore) Handler {
	return func(ctx context.Context, event any) error {
		env, ok := EnvelopeFromContext(ctx)
		if !ok || env.EventID == "" {
			return handler(ctx, event)
		}
		processed, err := store.HasProcessed(ctx, env.EventID, consumerName)
		if err != nil {
			return err
		}
		if processed {
			return nil
		}
		if !env.OccurredAt.IsZero() {
			metrics.ObserveConsumerLag(consumerName, time.Since(env.OccurredAt))
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
		return store.MarkProcessed(ctx, env.EventID, consumerName)
	}
}
