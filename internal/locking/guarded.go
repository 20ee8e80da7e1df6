package locking

// Guarded bundles a value with the domain that must be held to touch it.
// The value is reachable only through methods that check the caller's stack
// holds that exact domain. It replaces a struct of fields protected by
// convention with one protected by construction.
type Guarded[T any] struct {
	d   *Domain
	val T
}

// NewGuarded binds val to d. No lock is taken: the value is not yet shared.
func NewGuarded[T any](d *Domain, val T) *Guarded[T] {
	return &Guarded[T]{d: d, val: val}
}

// Bind attaches d to a zero Guarded. Binding twice is a violation.
func (g *Guarded[T]) Bind(d *Domain) {
	if g.d != nil {
		Fail(NewViolation(ErrAlreadyBound, g.d))
	}
	g.d = d
}

// Domain returns the domain guarding the value.
func (g *Guarded[T]) Domain() *Domain {
	return g.d
}

// Unlocked returns direct access to the value for a caller that already
// holds the domain through s. Use it to touch several fields under one lock.
// The pointer must not outlive the lock.
func (g *Guarded[T]) Unlocked(s *Stack) *T {
	AssertHeld(s, g.d)
	return &g.val
}

// Load locks the domain, copies the value, and unlocks.
func (g *Guarded[T]) Load(s *Stack) T {
	return With(s, g.d, func() T { return *g.Unlocked(s) })
}

// Store locks the domain, replaces the value, and unlocks.
func (g *Guarded[T]) Store(s *Stack, val T) {
	Do(s, g.d, func() { *g.Unlocked(s) = val })
}

// Update locks the domain, lets fn mutate the value in place, and unlocks.
func (g *Guarded[T]) Update(s *Stack, fn func(*T)) {
	Do(s, g.d, func() { fn(g.Unlocked(s)) })
}

// GetField locks g's domain, reads the field chosen by sel, and unlocks.
func GetField[T, F any](s *Stack, g *Guarded[T], sel func(*T) *F) F {
	return With(s, g.d, func() F { return *sel(g.Unlocked(s)) })
}

// SetField locks g's domain, writes v to the field chosen by sel, and
// unlocks.
func SetField[T, F any](s *Stack, g *Guarded[T], sel func(*T) *F, v F) {
	Do(s, g.d, func() { *sel(g.Unlocked(s)) = v })
}
