package application

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn over items with at most workers in flight. Each fn runs
// detached from ctx cancellation so an item in progress completes; once ctx
// is done no further items start. It returns ctx.Err() when interrupted.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) error {
	if workers <= 0 {
		workers = 1
	}
	itemCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(itemCtx, item)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
