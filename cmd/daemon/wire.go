package main

import (
	"context"
	"log/slog"
	nethttp "net/http"

	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/go-daemon-core/internal/adapters/http"
	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/config"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/health"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/procstat"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/telemetry"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// healthCheckWorkers bounds the coroutines one readiness probe fans out to.
const healthCheckWorkers = 4

// provideAdmin registers the admin surface. It expects the config, logger,
// metrics and root pool to be provided already.
func provideAdmin(i do.Injector) {
	do.Provide(i, func(i do.Injector) (*health.Registry, error) {
		root := do.MustInvoke[*resource.Pool](i)
		return health.New(health.WithConcurrentChecks(root, healthCheckWorkers)), nil
	})
	do.Provide(i, func(i do.Injector) (ports.HealthRegistry, error) {
		return do.MustInvoke[*health.Registry](i), nil
	})

	do.Provide(i, func(i do.Injector) (*procstat.Sampler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return procstat.New(context.Background(), cfg.Coroutine.MaxThreads)
	})

	do.Provide(i, func(i do.Injector) (*handlers.HealthHandler, error) {
		return handlers.NewHealthHandler(do.MustInvoke[ports.HealthRegistry](i)), nil
	})
	do.Provide(i, func(i do.Injector) (*handlers.DebugHandler, error) {
		return handlers.NewDebugHandler(
			do.MustInvoke[*resource.Pool](i),
			handlers.WithProcessSampler(do.MustInvoke[*procstat.Sampler](i)),
		), nil
	})

	do.Provide(i, func(i do.Injector) (nethttp.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		// Request coroutines get a pool of their own under the root.
		requests := resource.NewPool(do.MustInvoke[*resource.Pool](i), "http")

		return adapthttp.NewRouter(
			do.MustInvoke[*handlers.HealthHandler](i),
			do.MustInvoke[*handlers.DebugHandler](i),
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.OpenTelemetry(do.MustInvoke[*telemetry.Metrics](i)),
			middleware.Logging(logger),
			middleware.Coroutine(requests, cfg.Server.WriteTimeout),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*adapthttp.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return adapthttp.NewServer(cfg.Server, do.MustInvoke[nethttp.Handler](i), do.MustInvoke[*slog.Logger](i)), nil
	})
}
