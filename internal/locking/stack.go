package locking

import "context"

// Stack records which domain of each kind a goroutine holds. A Stack belongs
// to exactly one goroutine and is its identity for ownership checks: a
// domain held through one stack can only be released through the same one.
type Stack struct {
	slots [kindCount]*Domain
	top   Kind
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{top: -1}
}

// Top returns the kind of the most recently locked domain, or -1.
func (s *Stack) Top() Kind {
	return s.top
}

// Empty reports whether no domain is held.
func (s *Stack) Empty() bool {
	return s.top < 0
}

// Depth returns the number of held domains.
func (s *Stack) Depth() int {
	n := 0
	for _, d := range s.slots {
		if d != nil {
			n++
		}
	}
	return n
}

// IsLocked reports whether a domain of kind k is held and k is at or below
// the top of the stack.
func (s *Stack) IsLocked(k Kind) bool {
	return k.Valid() && k <= s.top && s.slots[k] != nil
}

// Holding returns the held domain of kind k, or nil. Code already running
// under a lock uses it to pass that lock on to helpers.
func (s *Stack) Holding(k Kind) *Domain {
	if !s.IsLocked(k) {
		return nil
	}
	return s.slots[k]
}

// Held returns the held domains in lock order.
func (s *Stack) Held() []*Domain {
	var out []*Domain
	for _, d := range s.slots {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

type stackKey struct{}

// WithStack returns a context carrying s.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// StackFrom returns the stack carried by ctx. A context without one is a
// violation: locking code must always know which goroutine it runs on.
func StackFrom(ctx context.Context) *Stack {
	if s := LookupStack(ctx); s != nil {
		return s
	}
	Fail(NewViolation(ErrNoStack, nil))
	return nil
}

// LookupStack returns the stack carried by ctx, or nil.
func LookupStack(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}
