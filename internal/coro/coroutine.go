package coro

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/telemetry"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

const tracerName = "github.com/jsamuelsen11/go-daemon-core/internal/coro"

// Entry is a coroutine body. It runs exactly once on the coroutine's own
// goroutine.
type Entry func(ctx context.Context)

// Coroutine is a handle to a running or finished coroutine. It is owned by
// the pool it was started in; freeing it from that pool joins it.
type Coroutine struct {
	name  string
	pool  *resource.Pool
	stack *locking.Stack

	// entry is cleared on release; a nil entry marks a dead handle.
	entry atomic.Pointer[Entry]
	state atomic.Int32

	// done is closed when entry returns. exit receives the handle found in
	// the goroutine's own context as its last act.
	done chan struct{}
	exit chan *Coroutine

	logger  *slog.Logger
	metrics *telemetry.Metrics
	span    trace.Span
}

var _ resource.Named = (*Coroutine)(nil)

// Run starts entry on a new coroutine owned by pool and returns without
// waiting for it. The coroutine's context inherits ctx's values, including
// the legacy domain and logger, but not its cancellation. Starting in a
// closed pool is a violation.
func Run(ctx context.Context, pool *resource.Pool, name string, entry Entry) *Coroutine {
	c, err := Start(ctx, pool, name, entry)
	if err != nil {
		fail(err, nil)
	}
	return c
}

// Start is [Run] for callers that race with the pool's shutdown. When pool
// is already closed it returns an error wrapping [resource.ErrPoolClosed]
// and entry never runs.
func Start(ctx context.Context, pool *resource.Pool, name string, entry Entry) (*Coroutine, error) {
	opts := options.Load()
	if opts == nil {
		fail(ErrNotInitialized, nil)
		return nil, nil
	}
	if entry == nil {
		fail(ErrNilEntry, nil)
		return nil, nil
	}
	if pool == nil {
		fail(ErrNilPool, nil)
		return nil, nil
	}

	c := &Coroutine{
		name:    name,
		pool:    pool,
		stack:   locking.NewStack(),
		done:    make(chan struct{}),
		exit:    make(chan *Coroutine, 1),
		logger:  logging.WithCoroutine(logging.FromContext(ctx), name),
		metrics: opts.Metrics,
	}
	c.entry.Store(&entry)
	c.state.Store(int32(statePending))
	if err := pool.TryAdd(c); err != nil {
		return nil, err
	}

	cctx := context.WithoutCancel(ctx)
	cctx = locking.WithStack(cctx, c.stack)
	cctx = logging.WithLogger(cctx, c.logger)
	cctx = context.WithValue(cctx, coroutineKey{}, c)
	cctx, c.span = otel.Tracer(tracerName).Start(cctx, "coroutine "+name,
		trace.WithAttributes(telemetry.AttrCoroutine.String(name)))

	if !c.state.CompareAndSwap(int32(statePending), int32(stateRunning)) {
		fail(ErrBadState, c)
	}
	go c.main(cctx, entry, opts.LockOSThread)

	c.logger.Debug("coroutine started")
	return c, nil
}

func (c *Coroutine) main(ctx context.Context, entry Entry, lockThread bool) {
	if lockThread {
		// Never unlocked: the runtime retires the thread with the goroutine.
		runtime.LockOSThread()
	}

	start := time.Now()
	c.metrics.RecordCoroutineStart(ctx, c.name)

	entry(ctx)

	if !c.stack.Empty() {
		locking.Fail(locking.NewViolation(locking.ErrLocksHeldAtExit, c.stack.Holding(c.stack.Top())))
	}

	elapsed := time.Since(start)
	c.metrics.RecordCoroutineEnd(ctx, c.name, elapsed)
	c.span.End()
	c.logger.Debug("coroutine returned", slog.Duration("elapsed", elapsed))

	// A self-detached coroutine stays self-detached.
	c.state.CompareAndSwap(int32(stateRunning), int32(stateFinished))
	close(c.done)
	c.exit <- FromContext(ctx)
}

// Name returns the name given to [Run].
func (c *Coroutine) Name() string { return c.name }

// Class returns [Class].
func (c *Coroutine) Class() *resource.Class { return Class }

// Pool returns the pool owning c.
func (c *Coroutine) Pool() *resource.Pool { return c.pool }

// Finished reports whether c's entry function has returned. It never blocks,
// and once it has reported true it keeps reporting true until c is released.
func (c *Coroutine) Finished() bool {
	if c.entry.Load() == nil {
		fail(ErrReleased, c)
		return true
	}
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when c's entry function returns.
func (c *Coroutine) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until c's entry function has returned, without releasing c.
// It is for callers that observe a coroutine they do not own.
func (c *Coroutine) Wait() {
	if c.entry.Load() == nil {
		fail(ErrReleased, c)
		return
	}
	<-c.done
}

// Released reports whether c has been finalized.
func (c *Coroutine) Released() bool {
	return state(c.state.Load()) == stateReleased
}

// SelfDone releases c from inside its own entry function, so that nobody
// has to join it. Its goroutine exits on its own once entry returns. If the
// owning pool is already joining c, SelfDone leaves the release to it.
func (c *Coroutine) SelfDone(ctx context.Context) {
	if locking.LookupStack(ctx) != c.stack {
		fail(ErrForeignThread, c)
		return
	}
	if !c.state.CompareAndSwap(int32(stateRunning), int32(stateSelfDetached)) {
		// The pool got there first and releases c once entry returns.
		if state(c.state.Load()) == stateJoining {
			return
		}
		fail(ErrBadState, c)
		return
	}
	c.span.SetAttributes(telemetry.AttrFinalize.String("self"))
	c.pool.Free(c)
}

// Finalize releases c. Pools call it; owners call [resource.Pool.Free].
// Unless c released itself, Finalize blocks until c's goroutine has exited.
func (c *Coroutine) Finalize() {
	for {
		switch st := state(c.state.Load()); st {
		case stateRunning, stateFinished:
			if !c.state.CompareAndSwap(int32(st), int32(stateJoining)) {
				continue
			}
			<-c.done
			if tok := <-c.exit; tok != c {
				fail(ErrExitToken, c)
			}
			c.release(stateJoining, "join")
			return
		case stateSelfDetached:
			c.release(stateSelfDetached, "self")
			return
		default:
			fail(ErrReleased, c)
			return
		}
	}
}

func (c *Coroutine) release(from state, how string) {
	if !c.state.CompareAndSwap(int32(from), int32(stateReleased)) {
		fail(ErrBadState, c)
		return
	}
	c.entry.Store(nil)
	c.logger.Debug("coroutine released", slog.String("finalize", how))
}
