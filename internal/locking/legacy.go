package locking

import "context"

// legacy is the whole-daemon domain, available without construction. It is
// kept for code not yet split into finer domains; new code should create its
// own domains instead.
var legacy = &Domain{kind: KindLegacy, name: "The Daemon", static: true}

// Legacy returns the whole-daemon domain.
func Legacy() *Domain {
	return legacy
}

// LockLegacy acquires the whole-daemon domain.
func LockLegacy(s *Stack) {
	Acquire(s, legacy)
}

// UnlockLegacy releases the whole-daemon domain.
func UnlockLegacy(s *Stack) {
	Release(s, legacy)
}

type legacyKey struct{}

// WithLegacy returns a context carrying d as the domain legacy call sites
// should lock. Migrating code passes the context instead of reaching for the
// package-level domain.
func WithLegacy(ctx context.Context, d *Domain) context.Context {
	if d.kind != KindLegacy {
		Fail(NewViolation(ErrBadOrder, d))
	}
	return context.WithValue(ctx, legacyKey{}, d)
}

// LegacyFrom returns the legacy domain carried by ctx, or [Legacy] if none.
func LegacyFrom(ctx context.Context) *Domain {
	if d, ok := ctx.Value(legacyKey{}).(*Domain); ok && d != nil {
		return d
	}
	return legacy
}
