package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"
)

// Sentinel errors naming each invariant. A [Violation] wraps exactly one.
var (
	ErrBadOrder         = errors.New("trying to lock in a bad order")
	ErrSlotOccupied     = errors.New("inconsistent locking stack state on lock")
	ErrInconsistentLock = errors.New("previous unlock not finished correctly")
	ErrNotOwner         = errors.New("inconsistent domain state on unlock")
	ErrOutOfOrder       = errors.New("inconsistent locking stack state on unlock")
	ErrNotHeld          = errors.New("domain is not held by this stack")
	ErrDestroyed        = errors.New("domain used after destroy")
	ErrDestroyHeld      = errors.New("destroying a held domain")
	ErrStaticDomain     = errors.New("static domain cannot be destroyed")
	ErrAlreadyBound     = errors.New("guarded data already bound to a domain")
	ErrNoStack          = errors.New("no locking stack")
	ErrNotInitialized   = errors.New("locking used before Init")
	ErrLocksHeldAtExit  = errors.New("locks held at exit")
)

// exitViolation is the process exit status after an invariant violation.
const exitViolation = 2

// Violation describes a broken locking invariant. It is a programming error
// and is never returned to callers; see [Fail].
type Violation struct {
	Err    error
	Domain string
	Kind   Kind
}

func (v *Violation) Error() string {
	if v.Domain == "" {
		return v.Err.Error()
	}
	return fmt.Sprintf("%v: domain %q (%s)", v.Err, v.Domain, v.Kind)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// NewViolation builds a violation of err for domain d, which may be nil.
func NewViolation(err error, d *Domain) *Violation {
	v := &Violation{Err: err, Kind: -1}
	if d != nil {
		v.Domain = d.name
		v.Kind = d.kind
	}
	return v
}

// AbortHandler replaces the default process abort. It must not return.
type AbortHandler func(*Violation)

var abortHandler atomic.Pointer[AbortHandler]

// SetAbortHandler installs h in place of the default abort and returns a
// function restoring the previous handler. Tests use it to turn aborts into
// panics they can recover from; production code never calls it.
func SetAbortHandler(h AbortHandler) (restore func()) {
	prev := abortHandler.Swap(&h)
	return func() { abortHandler.Store(prev) }
}

// Fail reports v and terminates the process. It does not return.
func Fail(v *Violation) {
	st := current()
	st.metrics.RecordLockViolation(context.Background(), v.Err.Error())

	if h := abortHandler.Load(); h != nil && *h != nil {
		(*h)(v)
	}

	st.logger.Error("locking invariant violated",
		slog.String("operation", "locking"),
		slog.String("domain", v.Domain),
		slog.String("kind", v.Kind.String()),
		slog.Any("error", v),
		slog.String("stack", string(debug.Stack())),
	)
	os.Exit(exitViolation)
}

// failIf aborts when err is a violation.
func failIf(err error) {
	if err == nil {
		return
	}
	var v *Violation
	if !errors.As(err, &v) {
		v = &Violation{Err: err, Kind: -1}
	}
	Fail(v)
}
