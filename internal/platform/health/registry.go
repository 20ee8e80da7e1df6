// Package health provides the health check registry behind the readiness
// endpoint. Resource pools, the admin server, and anything else that can
// fail at runtime register here at startup.
package health

import (
	"context"
	"slices"

	"github.com/jsamuelsen11/go-daemon-core/internal/app/fanout"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// Compile-time interface check.
var _ ports.HealthRegistry = (*Registry)(nil)

// Registry implements [ports.HealthRegistry]. The checker list lives in a
// service-kind lock domain, so callers pass the context carrying their
// locking stack.
type Registry struct {
	checkers *locking.Guarded[[]ports.HealthChecker]

	pool    *resource.Pool
	workers int
}

// Option configures a [Registry].
type Option func(*Registry)

// WithConcurrentChecks runs checks on up to workers coroutines owned by
// pool instead of one after another on the caller's goroutine.
func WithConcurrentChecks(pool *resource.Pool, workers int) Option {
	return func(r *Registry) {
		r.pool = pool
		r.workers = workers
	}
}

// New creates an empty health check registry. [locking.Init] must have run.
func New(opts ...Option) *Registry {
	d := locking.New(locking.KindService, "health registry")
	r := &Registry{checkers: locking.NewGuarded[[]ports.HealthChecker](d, nil)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a health checker to the registry.
func (r *Registry) Register(ctx context.Context, checker ports.HealthChecker) {
	r.checkers.Update(locking.StackFrom(ctx), func(cs *[]ports.HealthChecker) {
		*cs = append(*cs, checker)
	})
}

// CheckAll executes all registered health checks and returns results keyed by
// checker name. Nil values indicate healthy components. The checks run after
// the registry domain is released, so a checker may lock domains of any kind.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	checkers := slices.Clone(r.checkers.Load(locking.StackFrom(ctx)))

	results := make(map[string]error, len(checkers))
	if r.pool == nil {
		for _, c := range checkers {
			results[c.Name()] = c.HealthCheck(ctx)
		}
		return results
	}

	// Checkers run detached from ctx's cancellation on their coroutines, so
	// the deadline is passed through explicitly.
	outcomes := fanout.Run(ctx, r.pool, r.workers, checkers,
		func(cctx context.Context, c ports.HealthChecker) (struct{}, error) {
			if deadline, ok := ctx.Deadline(); ok {
				var cancel context.CancelFunc
				cctx, cancel = context.WithDeadline(cctx, deadline)
				defer cancel()
			}
			return struct{}{}, c.HealthCheck(cctx)
		})
	for i, o := range outcomes {
		results[checkers[i].Name()] = o.Err
	}
	return results
}

// Close retires the registry's lock domain.
func (r *Registry) Close() {
	r.checkers.Domain().Destroy()
}
