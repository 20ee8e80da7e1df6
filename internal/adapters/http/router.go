// Package http provides the admin HTTP adapter: routing and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/handlers"
)

// NewRouter creates an HTTP handler with all admin routes registered.
// Middleware is applied globally in the order given.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	debugHandler *handlers.DebugHandler,
	middlewares ...func(http.Handler) http.Handler,
) http.Handler {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Read-only diagnostics.
	r.Route("/debug", func(r chi.Router) {
		r.Get("/kinds", debugHandler.Kinds)
		r.Get("/domains", debugHandler.Domains)
		r.Get("/pools", debugHandler.Pools)
		r.Get("/pools/{name}", debugHandler.Pool)
		r.Get("/process", debugHandler.Process)
	})

	return r
}
