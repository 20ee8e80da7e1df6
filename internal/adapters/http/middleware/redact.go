package middleware

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
)

const redacted = "[REDACTED]"

// RedactHeaders returns the headers as one "headers" group, keys sorted.
// Values of headers listed in logging.SensitiveHeaders are replaced with
// [REDACTED]; repeated headers are joined with commas.
func RedactHeaders(h http.Header) slog.Attr {
	keys := slices.Sorted(maps.Keys(h))

	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		v := strings.Join(h[k], ",")
		if logging.SensitiveHeaders[strings.ToLower(k)] {
			v = redacted
		}
		attrs = append(attrs, slog.String(k, v))
	}
	return slog.Group("headers", attrs...)
}
