package locking

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen11/go-daemon-core/internal/platform/telemetry"
)

// Options configures the locking machinery. The zero value is usable.
type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// SlowHold is the hold time above which a release is logged at warn
	// level. Zero disables the warning.
	SlowHold time.Duration
}

type runtimeState struct {
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	slowHold time.Duration
	ready    bool
}

var state atomic.Pointer[runtimeState]

// Init prepares the locking machinery. It must run before any domain is
// created or locked, and may run again to swap the logger or metrics.
func Init(opts Options) error {
	if err := checkKindTable(); err != nil {
		return fmt.Errorf("checking lock order table: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state.Store(&runtimeState{
		logger:   logger,
		metrics:  opts.Metrics,
		slowHold: opts.SlowHold,
		ready:    true,
	})

	logger.Debug("locking initialized", slog.Int("kinds", int(kindCount)))
	return nil
}

// current returns the active state, or a not-ready default before Init.
func current() *runtimeState {
	if st := state.Load(); st != nil {
		return st
	}
	return &runtimeState{logger: slog.Default()}
}

func mustBeReady() {
	if !current().ready {
		Fail(NewViolation(ErrNotInitialized, nil))
	}
}
