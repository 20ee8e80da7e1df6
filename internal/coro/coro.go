// Package coro runs coroutines: units of work that each own a goroutine for
// their whole life, belong to a resource pool, and signal completion once.
//
// A coroutine is started with [Run] and returns immediately. Its owner either
// polls [Coroutine.Finished] and then frees it from its pool, or simply frees
// it, which blocks until the coroutine's entry function has returned and its
// goroutine has exited. A coroutine nobody will ever wait for frees itself
// with [Coroutine.SelfDone] from inside its own entry function.
//
// There is no cancellation. The context handed to the entry function carries
// the parent's values but never its deadline or cancellation; the only way a
// coroutine ends is by returning.
//
// Each coroutine gets a fresh [locking.Stack] in its context, and must have
// released every lock domain by the time its entry function returns.
package coro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/telemetry"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// Sentinel errors for coroutine misuse. All of them abort via [locking.Fail].
var (
	ErrNotInitialized = errors.New("coroutine started before coro.Init")
	ErrNilEntry       = errors.New("coroutine entry is nil")
	ErrNilPool        = errors.New("coroutine pool is nil")
	ErrReleased       = errors.New("coroutine used after release")
	ErrForeignThread  = errors.New("coroutine self-release from a foreign goroutine")
	ErrBadState       = errors.New("coroutine in unexpected lifecycle state")
	ErrExitToken      = errors.New("coroutine exited with a foreign identity token")
)

// Class is the resource class of every coroutine.
var Class = &resource.Class{Name: "Coroutine"}

// Options configures coroutine scheduling.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// LockOSThread wires each coroutine to one OS thread for its whole life.
	// The thread is never unlocked, so it exits together with the goroutine.
	LockOSThread bool
}

var options atomic.Pointer[Options]

// Init registers the coroutine resource class. It must run after
// [resource.Init] and before the first [Run].
func Init(opts Options) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	resource.RegisterClass(Class)
	options.Store(&opts)
	opts.Logger.Debug("coroutines initialized", slog.Bool("lock_os_thread", opts.LockOSThread))
}

func fail(err error, c *Coroutine) {
	if c != nil {
		err = fmt.Errorf("%w: %q in state %s", err, c.name, state(c.state.Load()))
	}
	locking.Fail(&locking.Violation{Err: err, Kind: -1})
}

type coroutineKey struct{}

// FromContext returns the coroutine running the calling entry function, or
// nil outside a coroutine.
func FromContext(ctx context.Context) *Coroutine {
	c, _ := ctx.Value(coroutineKey{}).(*Coroutine)
	return c
}
