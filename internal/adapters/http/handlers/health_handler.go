package handlers

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
)

// Probe statuses.
const (
	statusOK       = "ok"
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

// HealthHandler serves the orchestrator probes.
type HealthHandler struct {
	registry ports.HealthRegistry
}

func NewHealthHandler(registry ports.HealthRegistry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Liveness handles GET /health/live. The process answering is all it checks.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: statusOK})
}

// Readiness handles GET /health/ready: 200 when every registered checker
// passes, 503 naming the failed ones otherwise. The registry locks its
// domain, so the request context must carry a locking stack.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results := h.registry.CheckAll(ctx)

	resp := dto.HealthResponse{
		Status: statusReady,
		Checks: make(map[string]string, len(results)),
	}
	for _, name := range slices.Sorted(maps.Keys(results)) {
		err := results[name]
		if err == nil {
			resp.Checks[name] = statusOK
			continue
		}
		resp.Checks[name] = err.Error()
		resp.Failed = append(resp.Failed, name)
		logging.FromContext(ctx).WarnContext(ctx, "readiness check failed",
			slog.String("checker", name),
			slog.Any("error", err),
		)
	}

	code := http.StatusOK
	if len(resp.Failed) > 0 {
		resp.Status = statusNotReady
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, resp)
}
