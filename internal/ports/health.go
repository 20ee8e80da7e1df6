package ports

import "context"

// HealthChecker is a component that takes part in readiness: resource
// pools, the admin server and the process sampler.
type HealthChecker interface {
	// Name keys the checker in readiness results, e.g. "pool:Root".
	Name() string

	// HealthCheck returns nil when healthy. It must honor ctx's deadline.
	HealthCheck(ctx context.Context) error
}

// HealthRegistry runs every registered checker for the readiness probe.
// Both methods lock the registry's domain, so ctx must carry the caller's
// locking stack.
type HealthRegistry interface {
	Register(ctx context.Context, checker HealthChecker)

	// CheckAll returns one result per checker, keyed by name; nil means
	// healthy.
	CheckAll(ctx context.Context) map[string]error
}
