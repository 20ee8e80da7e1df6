// Package locking implements lock domains: named mutual-exclusion units whose
// acquisition order is checked at the moment of every lock and unlock.
//
// Domain kinds are declared once, in [Kind] order, and that order is the
// global lock order. A goroutine that holds several domains must have taken
// them in strictly increasing kind order and must release them in exactly
// the reverse order. Each goroutine proves its order with a [Stack]: one slot
// per kind plus the index of the most recently filled slot.
//
// Goroutines have no thread-local storage, so the stack travels explicitly.
// Every coroutine gets its own stack, and code that locks receives it either
// as an argument or through the context:
//
//	ctx = locking.WithStack(ctx, locking.NewStack())
//	s := locking.StackFrom(ctx)
//
//	locking.Do(s, d, func() {
//	    // d is held here, released on every exit path
//	})
//
// Data that needs a domain is wrapped in a [Guarded] value, which only hands
// out its payload to a stack that currently holds the bound domain:
//
//	peers := locking.NewGuarded(d, map[string]int{})
//	n := locking.GetField(s, peers, func(m *map[string]int) *map[string]int { return m })
//
// Every violated invariant (bad order, double lock, unlock from a foreign
// stack, out-of-order unlock) is a programming error. It is reported through
// [Fail], which logs the violation and terminates the process. The checks
// themselves are exposed as pure predicates ([CheckAcquire], [CheckRelease],
// [CheckHeld]) so tests can assert what would fail without aborting.
//
// [Init] must run before any domain is created or locked.
package locking
