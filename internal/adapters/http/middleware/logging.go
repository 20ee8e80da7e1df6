package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
)

// probePrefix marks the liveness and readiness endpoints, which orchestrators
// poll every few seconds.
const probePrefix = "/health/"

// Logging returns middleware that logs each admin request once it completes.
// The request logger, tagged with the request ID, is stored in the context
// for handlers. Health probes are logged at debug level, server errors at
// warn, and everything else at info. At debug level the redacted request
// headers are logged too.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With(slog.String("request_id", RequestIDFromContext(r.Context())))
			ctx := logging.WithLogger(r.Context(), reqLogger)

			if reqLogger.Enabled(ctx, slog.LevelDebug) {
				reqLogger.DebugContext(ctx, "request headers", RedactHeaders(r.Header))
			}

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case strings.HasPrefix(r.URL.Path, probePrefix):
				level = slog.LevelDebug
			}

			reqLogger.LogAttrs(ctx, level, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
