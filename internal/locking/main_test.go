package locking_test

import (
	"errors"
	"os"
	"testing"

	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
)

func TestMain(m *testing.M) {
	if err := locking.Init(locking.Options{Logger: logging.Discard()}); err != nil {
		panic(err)
	}
	locking.SetAbortHandler(func(v *locking.Violation) { panic(v) })

	os.Exit(m.Run())
}

// expectViolation runs fn and fails the test unless it aborts with want.
func expectViolation(t *testing.T, want error, fn func()) *locking.Violation {
	t.Helper()

	var got *locking.Violation
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			v, ok := r.(*locking.Violation)
			if !ok {
				panic(r)
			}
			got = v
		}()
		fn()
	}()

	if got == nil {
		t.Fatalf("expected violation %v, got none", want)
	}
	if !errors.Is(got, want) {
		t.Fatalf("violation = %v, want %v", got, want)
	}
	return got
}
