package locking

// CheckAcquire reports the violation that locking d through s would cause
// before blocking on d, or nil. It has no side effects.
func CheckAcquire(s *Stack, d *Domain) error {
	switch {
	case s == nil:
		return NewViolation(ErrNoStack, d)
	case d == nil:
		return NewViolation(ErrNotHeld, nil)
	case d.destroyed.Load():
		return NewViolation(ErrDestroyed, d)
	case d.kind <= s.top:
		return NewViolation(ErrBadOrder, d)
	case s.slots[d.kind] != nil:
		return NewViolation(ErrSlotOccupied, d)
	}
	return nil
}

// CheckRelease reports the violation that unlocking d through s would
// cause, or nil. Only the holder may unlock, and only its innermost domain.
func CheckRelease(s *Stack, d *Domain) error {
	switch {
	case s == nil:
		return NewViolation(ErrNoStack, d)
	case d == nil:
		return NewViolation(ErrNotHeld, nil)
	case d.lockedBy.Load() != s:
		return NewViolation(ErrNotOwner, d)
	case s.top != d.kind || s.slots[d.kind] != d:
		return NewViolation(ErrOutOfOrder, d)
	}
	return nil
}

// CheckHeld reports whether s holds exactly d, returning a violation if not.
func CheckHeld(s *Stack, d *Domain) error {
	switch {
	case s == nil:
		return NewViolation(ErrNoStack, d)
	case d == nil:
		return NewViolation(ErrNotHeld, nil)
	case d.lockedBy.Load() != s, !s.IsLocked(d.kind), s.slots[d.kind] != d:
		return NewViolation(ErrNotHeld, d)
	}
	return nil
}

// AssertHeld aborts unless s holds exactly d.
func AssertHeld(s *Stack, d *Domain) {
	failIf(CheckHeld(s, d))
}
