package locking

import (
	"context"
	"log/slog"
	"time"
)

// Acquire locks d for the goroutine owning s, blocking while another
// goroutine holds it. Locking out of kind order, or locking a domain this
// stack already holds, aborts before blocking.
func Acquire(s *Stack, d *Domain) {
	mustBeReady()
	failIf(CheckAcquire(s, d))

	start := time.Now()
	d.mu.Lock()
	waited := time.Since(start)

	if d.prev != nil || d.lockedBy.Load() != nil {
		Fail(NewViolation(ErrInconsistentLock, d))
	}

	if s.top >= 0 {
		d.prev = s.slots[s.top]
	}
	s.slots[d.kind] = d
	s.top = d.kind
	d.lockedBy.Store(s)
	d.lockedAt = time.Now()

	current().metrics.RecordLockWait(context.Background(), d.kind.String(), waited)
}

// Release unlocks d. Only the stack that locked d may release it, and d must
// be the most recently locked domain still held by that stack.
func Release(s *Stack, d *Domain) {
	failIf(CheckRelease(s, d))

	held := time.Since(d.lockedAt)

	d.lockedBy.Store(nil)
	if d.prev != nil {
		s.top = d.prev.kind
	} else {
		s.top = -1
	}
	s.slots[d.kind] = nil
	d.prev = nil
	d.lockedAt = time.Time{}
	d.mu.Unlock()

	st := current()
	st.metrics.RecordLockHold(context.Background(), d.kind.String(), held)
	if st.slowHold > 0 && held > st.slowHold {
		st.logger.Warn("domain held for a long time",
			slog.String("domain", d.name),
			slog.String("kind", d.kind.String()),
			slog.Duration("held", held),
		)
	}
}
