package application

import (
	"context"
	"sync"

	billing "rent-billing/internal/billing/domain"
)

// runCache memoizes lookups by id for the duration of one sweep. Errors are
// not cached.
type runCache[V any] struct {
	load func(context.Context, string) (V, error)

	mu      sync.Mutex
	entries map[string]V
}

func newRunCache[V any](load func(context.Context, string) (V, error)) *runCache[V] {
	return &runCache[V]{load: load, entries: make(map[string]V)}
}

func (c *runCache[V]) get(ctx context.Context, id string) (V, error) {
	c.mu.Lock()
	v, ok := c.entries[id]
	c.mu.Unlock()
	if ok {
		return v, nil
	}
	v, err := c.load(ctx, id)
	if err != nil {
		return v, err
	}
	c.mu.Lock()
	c.entries[id] = v
	c.mu.Unlock()
	return v, nil
}

func newConfigCache(store billing.ConfigStore) *runCache[*billing.Config] {
	return newRunCache(store.GetConfig)
}

func newUnitCache(units billing.UnitOracle) *runCache[*billing.Unit] {
	return newRunCache(units.GetUnit)
}
