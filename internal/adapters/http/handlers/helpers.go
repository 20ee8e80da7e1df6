package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
)

// writeJSON encodes v as the response body. Every admin response is a
// snapshot of live daemon state, so none of them may be cached.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "encoding admin response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
}
