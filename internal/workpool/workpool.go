// Package workpool runs per-item work with bounded concurrency.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for each index in [0, n) with at most limit calls in
// flight (no limit when limit <= 0). Once ctx is done no further calls are
// started. Calls already started receive a context detached from ctx
// cancellation so that they can finish their transaction. ForEach returns the
// number of started calls and ctx.Err() when it stopped early.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) (int, error) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	detached := context.WithoutCancel(ctx)
	started := 0
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(detached, i)
			return nil
		})
		started++
	}
	_ = g.Wait()
	if started < n {
		return started, ctx.Err()
	}
	return started, nil
}
