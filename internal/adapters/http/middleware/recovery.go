package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/dto"
)

// errPanic is what clients see instead of the panic value.
var errPanic = errors.New("internal server error")

// Recovery returns middleware that turns a handler panic into a logged error
// and, unless the handler already started its response, an RFC 9457 500.
//
// Locking violations never get here: they end the process first.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}
				logger.ErrorContext(r.Context(), "handler panicked",
					slog.String("operation", r.Method+" "+r.URL.Path),
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
				)

				if !rec.sent {
					dto.WriteErrorResponse(rec, r, errPanic)
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
