package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/procstat"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// ProcessSampler samples OS-level statistics of the daemon process.
type ProcessSampler interface {
	Snapshot(ctx context.Context) (procstat.Snapshot, error)
}

// DebugHandler serves read-only snapshots of lock domains and resource
// pools. Snapshots are taken without locking any domain, so they are safe
// to request while the daemon is wedged on one.
type DebugHandler struct {
	root    *resource.Pool
	domains func() []locking.DomainInfo
	process ProcessSampler
}

// DebugOption configures a [DebugHandler].
type DebugOption func(*DebugHandler)

// WithProcessSampler enables GET /debug/process.
func WithProcessSampler(s ProcessSampler) DebugOption {
	return func(h *DebugHandler) { h.process = s }
}

// NewDebugHandler creates a DebugHandler reporting on root and its subtree.
func NewDebugHandler(root *resource.Pool, opts ...DebugOption) *DebugHandler {
	h := &DebugHandler{root: root, domains: locking.Domains}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Kinds handles GET /debug/kinds.
func (h *DebugHandler) Kinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.ToKindListResponse(locking.Kinds()))
}

// Domains handles GET /debug/domains, optionally filtered by the kind and
// held query parameters.
func (h *DebugHandler) Domains(w http.ResponseWriter, r *http.Request) {
	filter, err := dto.ParseDomainFilter(r.URL.Query())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ToDomainListResponse(h.domains(), filter))
}

// Pools handles GET /debug/pools.
func (h *DebugHandler) Pools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.ToPoolResponse(h.root.Dump()))
}

// Pool handles GET /debug/pools/{name}.
func (h *DebugHandler) Pool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, ok := dto.FindPool(h.root.Dump(), name)
	if !ok {
		dto.WriteErrorResponse(w, r, &domain.NotFoundError{What: "pool", Name: name})
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ToPoolResponse(info))
}

// Process handles GET /debug/process.
func (h *DebugHandler) Process(w http.ResponseWriter, r *http.Request) {
	if h.process == nil {
		dto.WriteErrorResponse(w, r, &domain.NotFoundError{What: "sampler", Name: "process"})
		return
	}
	snap, err := h.process.Snapshot(r.Context())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ToProcessResponse(snap))
}
