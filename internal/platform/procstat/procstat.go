// Package procstat samples OS-level statistics of the daemon process. With
// coroutines wired one to one onto OS threads, the thread count is the
// resource that runs out first, so the sampler doubles as a health checker
// with a thread limit.
package procstat

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
)

var _ ports.HealthChecker = (*Sampler)(nil)

// Snapshot is one sample of the process.
type Snapshot struct {
	PID        int32
	Threads    int32
	Goroutines int
	RSSBytes   uint64
}

// Sampler reads statistics of the current process.
type Sampler struct {
	proc       *process.Process
	maxThreads int32
}

// New opens the current process. A positive maxThreads makes HealthCheck
// fail once the process runs more OS threads than that.
func New(ctx context.Context, maxThreads int32) (*Sampler, error) {
	pid := int32(os.Getpid()) //nolint:gosec // pids fit in int32 on every supported OS
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("opening process %d: %w", pid, err)
	}
	return &Sampler{proc: p, maxThreads: maxThreads}, nil
}

// Snapshot samples the process.
func (s *Sampler) Snapshot(ctx context.Context) (Snapshot, error) {
	threads, err := s.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading thread count: %w", err)
	}
	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading memory info: %w", err)
	}
	return Snapshot{
		PID:        s.proc.Pid,
		Threads:    threads,
		Goroutines: runtime.NumGoroutine(),
		RSSBytes:   mem.RSS,
	}, nil
}

// Name identifies the sampler in health check results.
func (s *Sampler) Name() string { return "process" }

// HealthCheck fails when the process cannot be sampled or runs more OS
// threads than allowed.
func (s *Sampler) HealthCheck(ctx context.Context) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if s.maxThreads > 0 && snap.Threads > s.maxThreads {
		return fmt.Errorf("%d OS threads, limit %d: %w", snap.Threads, s.maxThreads, domain.ErrUnavailable)
	}
	return nil
}
