// Package parallel provides the small set of concurrency helpers used by the
// estimators and the cross-validation worker pool.
package parallel

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParallelizeN divides items into at most parts contiguous ranges and runs
// fn on each range concurrently. The ranges are deterministic for a given (items, parts) pair, which keeps
// reductions over partial results reproducible.
func ParallelizeN(items, parts int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if parts < 1 {
		parts = 1
	}
	if parts > items {
		parts = items
	}

	chunkSize := (items + parts - 1) / parts

	var wg sync.WaitGroup
	for i := 0; i < parts; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach runs fn(ctx, i) for i in [0, n) with at most limit calls in
// flight. The first error cancels ctx for the remaining calls and is
// returned; calls not yet started are skipped.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
