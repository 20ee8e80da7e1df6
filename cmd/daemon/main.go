// Command daemon boots the lock domains and the resource tree, serves the
// admin API on a coroutine and shuts down on SIGINT or SIGTERM.
//
// The profile is read from APP_PROFILE and selects configs/<profile>.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/go-daemon-core/internal/adapters/http"
	"github.com/jsamuelsen11/go-daemon-core/internal/coro"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/config"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/health"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/procstat"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

const telemetryFlushTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "daemon:", err)
		os.Exit(1)
	}
}

func run() error {
	profile, ok := os.LookupEnv("APP_PROFILE")
	if !ok || profile == "" {
		return errors.New("APP_PROFILE must name a config profile such as local, dev or prod")
	}
	cfg, err := config.Load(profile)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	otel, err := initTelemetry(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := otel.Shutdown(ctx); err != nil {
			logger.Error("flushing telemetry",
				slog.String("operation", "telemetry.Shutdown"),
				slog.Any("error", err),
			)
		}
	}()

	// The kind table is validated before any domain exists.
	if err := locking.Init(locking.Options{
		Logger:   logger,
		Metrics:  otel.metrics,
		SlowHold: cfg.Locking.SlowHoldThreshold,
	}); err != nil {
		return err
	}
	root := resource.Init()
	coro.Init(coro.Options{
		Logger:       logger,
		Metrics:      otel.metrics,
		LockOSThread: cfg.Coroutine.LockOSThread,
	})

	// The main goroutine locks like a coroutine does, from its own stack.
	ctx := logging.WithLogger(context.Background(), logger)
	ctx = locking.WithStack(ctx, locking.NewStack())
	ctx = locking.WithLegacy(ctx, locking.Legacy())

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)
	do.ProvideValue(injector, root)
	provideAdmin(injector)

	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("wiring admin server: %w", err)
	}
	registry := do.MustInvoke[*health.Registry](injector)
	for _, checker := range []ports.HealthChecker{root, server, do.MustInvoke[*procstat.Sampler](injector)} {
		registry.Register(ctx, checker)
	}

	// Owned by the root pool: closing the tree joins the server coroutine.
	served := make(chan error, 1)
	coro.Run(ctx, root, "admin-http", func(context.Context) {
		served <- server.Start()
	})

	runErr := awaitStop(ctx, logger, served)

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Coroutine.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(stopCtx); err != nil {
		logger.Error("draining admin requests",
			slog.String("operation", "server.Shutdown"),
			slog.Any("error", err),
		)
	}
	if err := closeTree(stopCtx, root); err != nil {
		logger.Error("closing resource tree",
			slog.String("operation", "resource.Close"),
			slog.Any("error", err),
		)
		return errors.Join(runErr, err)
	}
	// Only safe once no coroutine can still run a check.
	registry.Close()

	if runErr == nil {
		logger.Info("daemon stopped")
	}
	return runErr
}

// awaitStop blocks until a termination signal, which is a clean stop, or
// until the admin server fails.
func awaitStop(ctx context.Context, logger *slog.Logger, served <-chan error) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Info("stopping on signal", slog.Any("cause", context.Cause(sigCtx)))
		return nil
	case err := <-served:
		if err == nil {
			err = errors.New("stopped unexpectedly")
		}
		return fmt.Errorf("admin server: %w", err)
	}
}

// closeTree closes the root pool, which joins every coroutine still owned by
// it. A coroutine that never returns would block Close forever, so the wait
// ends with ctx and the process exits regardless.
func closeTree(ctx context.Context, root *resource.Pool) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		root.Close()
	}()

	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("coroutines still running: %w", ctx.Err())
	}
}
