// Package middleware provides the admin server's request pipeline:
//
//	Recovery → RequestID → OpenTelemetry → Logging → Coroutine → Handler
//
// Every middleware is a func(http.Handler) http.Handler, applied in that
// order with chi's Use.
package middleware

import "net/http"

// statusRecorder remembers the status and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
	sent   bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status and forwards it. Later calls are
// dropped, as net/http would only warn about them.
func (sr *statusRecorder) WriteHeader(code int) {
	if sr.sent {
		return
	}
	sr.status = code
	sr.sent = true
	sr.ResponseWriter.WriteHeader(code)
}

// Write forwards b, counting the bytes. A first Write implies 200.
func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.sent = true
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
