// Package workpool runs independent jobs with bounded concurrency and
// collects their results by index.
package workpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWidth is used when a caller passes width <= 0.
const DefaultWidth = 6

// Gather runs fn(ctx, i) for every i in [0, n) with at most width calls in
// flight. results[i] holds fn's value and done[i] reports whether call i
// finished before Gather returned.
//
// Gather returns as soon as every call finished or ctx is done, whichever
// comes first. Calls still running at that point keep ctx and should return
// promptly once it is done; their results are discarded. No new calls start
// after ctx is done.
func Gather[T any](ctx context.Context, width, n int, fn func(ctx context.Context, i int) T) (results []T, done []bool) {
	if width <= 0 {
		width = DefaultWidth
	}
	if n <= 0 {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		slots = make([]T, n)
		ok    = make([]bool, n)
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)

		var g errgroup.Group
		g.SetLimit(width)
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				v := fn(ctx, i)
				mu.Lock()
				slots[i] = v
				ok[i] = true
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	// Copy under the lock so stragglers cannot race with the caller.
	mu.Lock()
	defer mu.Unlock()
	results = make([]T, n)
	done = make([]bool, n)
	copy(results, slots)
	copy(done, ok)
	return results, done
}
