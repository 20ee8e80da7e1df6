package fanout_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/go-daemon-core/internal/app/fanout"
	"github.com/jsamuelsen11/go-daemon-core/internal/coro"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

func TestMain(m *testing.M) {
	if err := locking.Init(locking.Options{Logger: logging.Discard()}); err != nil {
		panic(err)
	}
	resource.Init()
	coro.Init(coro.Options{Logger: logging.Discard()})

	os.Exit(m.Run())
}

func double(_ context.Context, n int) (int, error) { return 2 * n, nil }

func values[R any](results []fanout.Result[R]) []R {
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()

	results := fanout.Run(context.Background(), resource.Root(), 4, nil, func(context.Context, int) (int, error) {
		t.Error("fn called without items")
		return 0, nil
	})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRun_ResultsInInputOrder(t *testing.T) {
	t.Parallel()

	// Earlier items sleep longer so they finish last.
	delays := []time.Duration{30 * time.Millisecond, 20 * time.Millisecond, 10 * time.Millisecond, 0}
	results := fanout.Run(context.Background(), resource.Root(), len(delays), delays,
		func(_ context.Context, d time.Duration) (time.Duration, error) {
			time.Sleep(d)
			return d, nil
		})

	assert.Equal(t, delays, values(results))
}

func TestRun_ErrorsStayWithTheirItem(t *testing.T) {
	t.Parallel()

	errBusy := errors.New("table busy")
	results := fanout.Run(context.Background(), resource.Root(), 3, []int{1, 2, 3},
		func(_ context.Context, n int) (int, error) {
			if n == 2 {
				return 0, errBusy
			}
			return 10 * n, nil
		})

	require.Len(t, results, 3)
	assert.Equal(t, fanout.Result[int]{Value: 10}, results[0])
	assert.ErrorIs(t, results[1].Err, errBusy)
	assert.Equal(t, fanout.Result[int]{Value: 30}, results[2])
}

func TestRun_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	var active, peak atomic.Int32

	items := make([]int, 5*workers)
	fanout.Run(context.Background(), resource.Root(), workers, items, func(context.Context, int) (int, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for p := peak.Load(); n > p && !peak.CompareAndSwap(p, n); p = peak.Load() {
		}
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Positive(t, peak.Load())
}

func TestRun_WorkersClamped(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{-1, 0, 100} {
		results := fanout.Run(context.Background(), resource.Root(), workers, []int{1, 2}, double)
		assert.Equal(t, []int{2, 4}, values(results), "workers=%d", workers)
	}
}

func TestRun_CancelSkipsWaitingItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var called atomic.Int32
	results := fanout.Run(ctx, resource.Root(), 1, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		called.Add(1)
		if n == 1 {
			cancel()
			time.Sleep(20 * time.Millisecond)
		}
		return n, nil
	})

	assert.Equal(t, fanout.Result[int]{Value: 1}, results[0])
	assert.ErrorIs(t, results[2].Err, context.Canceled)
	assert.Less(t, called.Load(), int32(3))
}

func TestRun_StartedItemsIgnoreCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := fanout.Run(ctx, resource.Root(), 1, []int{7}, func(ctx context.Context, n int) (int, error) {
		cancel()
		return n, ctx.Err()
	})
	assert.Equal(t, fanout.Result[int]{Value: 7}, results[0])
}

func TestRun_ItemsLockOnOwnStacks(t *testing.T) {
	t.Parallel()

	routes := locking.New(locking.KindTable, "fanout routes")
	defer routes.Destroy()

	results := fanout.Run(context.Background(), resource.Root(), 4, []int{1, 2, 3, 4},
		func(ctx context.Context, _ int) (*locking.Stack, error) {
			s := locking.StackFrom(ctx)
			locking.Do(s, routes, func() { time.Sleep(time.Millisecond) })
			return s, nil
		})

	stacks := map[*locking.Stack]bool{}
	for _, r := range results {
		assert.True(t, r.Value.Empty())
		stacks[r.Value] = true
	}
	assert.Len(t, stacks, 4, "items shared a stack")
}

func TestRun_JoinsBeforeReturning(t *testing.T) {
	t.Parallel()

	parent := resource.NewPool(resource.Root(), t.Name())
	defer parent.Close()

	fanout.Run(context.Background(), parent, 2, []int{1, 2, 3}, double)
	assert.Zero(t, parent.Len())
}

func TestRun_ParentClosedMidway(t *testing.T) {
	t.Parallel()

	parent := resource.NewPool(resource.Root(), t.Name())
	defer parent.Close()

	nested := make(chan *resource.Pool, 1)
	gate := make(chan struct{})
	done := make(chan []fanout.Result[int])
	go func() {
		done <- fanout.Run(context.Background(), parent, 1, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
			if n == 1 {
				nested <- coro.FromContext(ctx).Pool()
				<-gate
			}
			return n, nil
		})
	}()

	pool := <-nested
	go parent.Close()
	require.Eventually(t, pool.Closed, time.Second, time.Millisecond)
	close(gate)

	var results []fanout.Result[int]
	select {
	case results = <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after its parent closed")
	}

	require.Len(t, results, 3)
	assert.Equal(t, fanout.Result[int]{Value: 1}, results[0])
	assert.ErrorIs(t, results[1].Err, resource.ErrPoolClosed)
	assert.ErrorIs(t, results[2].Err, resource.ErrPoolClosed)
	assert.True(t, parent.Closed())
}

func TestRun_ParentAlreadyClosed(t *testing.T) {
	t.Parallel()

	parent := resource.NewPool(nil, t.Name())
	parent.Close()

	results := fanout.Run(context.Background(), parent, 2, []int{1, 2}, func(context.Context, int) (int, error) {
		t.Error("fn called in a closed pool")
		return 0, nil
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, resource.ErrPoolClosed)
	}
}
