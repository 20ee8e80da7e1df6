// Package fanout runs a function across a slice of items on coroutines,
// with bounded concurrency, preserving input order in results.
//
// Every item runs on its own coroutine in a pool nested under the caller's
// pool, so each call gets its own locking stack. Run returns only after the
// nested pool is closed, which joins every coroutine it started.
package fanout

import (
	"context"

	"github.com/jsamuelsen11/go-daemon-core/internal/coro"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// Result holds the outcome of processing a single item.
// Either Value is populated (on success) or Err is non-nil (on failure).
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for each item in items on at most maxWorkers concurrent
// coroutines owned by a pool nested in parent. Results are returned in the
// same order as the input items.
//
// If ctx is canceled while items are still waiting for a worker slot, those
// items record ctx.Err() and fn is never called for them. Items already
// started run to completion: coroutines do not see cancellation. Likewise,
// once parent is closed the items not yet started record an error wrapping
// [resource.ErrPoolClosed].
//
// The caller must not hold a domain that fn locks, since Run blocks until
// every fn has returned.
func Run[T, R any](
	ctx context.Context,
	parent *resource.Pool,
	maxWorkers int,
	items []T,
	fn func(context.Context, T) (R, error),
) []Result[R] {
	if len(items) == 0 {
		return []Result[R]{}
	}
	maxWorkers = max(maxWorkers, 1)

	results := make([]Result[R], len(items))
	pool, err := resource.OpenPool(parent, "fanout")
	if err != nil {
		return skip(results, 0, err)
	}
	defer pool.Close()

	sem := make(chan struct{}, maxWorkers)

	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return skip(results, i, ctx.Err())
		}

		_, err := coro.Start(ctx, pool, "fanout", func(cctx context.Context) {
			defer func() { <-sem }()
			val, err := fn(cctx, item)
			results[i] = Result[R]{Value: val, Err: err}
		})
		if err != nil {
			return skip(results, i, err)
		}
	}

	return results
}

// skip records err for every item from i on.
func skip[R any](results []Result[R], i int, err error) []Result[R] {
	for j := i; j < len(results); j++ {
		results[j] = Result[R]{Err: err}
	}
	return results
}
