package locking

// Locked is a held domain that releases itself exactly once. It is the
// usual way to lock:
//
//	l := locking.Lock(s, d)
//	defer l.Unlock()
type Locked struct {
	s    *Stack
	d    *Domain
	done bool
}

// Lock acquires d through s and returns the guard that releases it.
func Lock(s *Stack, d *Domain) *Locked {
	Acquire(s, d)
	return &Locked{s: s, d: d}
}

// Unlock releases the domain. Calls after the first are no-ops, so an early
// explicit Unlock may be followed by a deferred one.
func (l *Locked) Unlock() {
	if l.done {
		return
	}
	l.done = true
	Release(l.s, l.d)
}

// Domain returns the guarded domain.
func (l *Locked) Domain() *Domain { return l.d }

// Stack returns the stack holding the domain.
func (l *Locked) Stack() *Stack { return l.s }

// Do runs body with d held and releases d on every way out of body: normal
// return, early return, or panic.
func Do(s *Stack, d *Domain, body func()) {
	l := Lock(s, d)
	defer l.Unlock()
	body()
}

// With runs fn with d held and returns its result.
func With[R any](s *Stack, d *Domain, fn func() R) R {
	l := Lock(s, d)
	defer l.Unlock()
	return fn()
}
