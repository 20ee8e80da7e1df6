package middleware

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/jsamuelsen11/go-daemon-core/internal/coro"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

// Coroutine returns middleware that runs each handler on its own coroutine
// started in pool. The coroutine gives the request a fresh locking stack and
// aborts the process if the handler returns still holding a domain.
//
// Request coroutines release themselves as soon as they start, so nothing
// joins them and a handler that outlives its deadline never blocks shutdown.
// Coroutine contexts ignore cancellation, so the deadline is attached to the
// handler context explicitly. If the handler has not finished by then, a
// 504 Gateway Timeout is written and its late output is discarded.
//
// A panic in the handler is re-raised on the serving goroutine, where
// Recovery can catch it.
func Coroutine(pool *resource.Pool, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline := time.Now().Add(timeout)
			tw := &bufferedWriter{w: w}
			var panicked any

			c := coro.Run(r.Context(), pool, "http "+r.Method+" "+r.URL.Path, func(ctx context.Context) {
				coro.FromContext(ctx).SelfDone(ctx)

				ctx, cancel := context.WithDeadline(ctx, deadline)
				defer cancel()
				defer func() { panicked = recover() }()

				next.ServeHTTP(tw, r.WithContext(ctx))
			})

			timer := time.NewTimer(time.Until(deadline))
			defer timer.Stop()

			select {
			case <-c.Done():
				if panicked != nil {
					panic(panicked)
				}
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.flush()
			case <-timer.C:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if !tw.wroteHeader {
					w.WriteHeader(http.StatusGatewayTimeout)
				}
			}
		})
	}
}

// bufferedWriter holds the handler's response until the serving goroutine
// decides between flushing it and answering 504. Writes after a timeout are
// dropped.
type bufferedWriter struct {
	w           http.ResponseWriter
	mu          sync.Mutex
	header      http.Header
	buf         []byte
	statusCode  int
	wroteHeader bool
	timedOut    bool
}

func (bw *bufferedWriter) Header() http.Header {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.header == nil {
		bw.header = make(http.Header)
	}
	return bw.header
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !bw.wroteHeader {
		bw.statusCode = http.StatusOK
		bw.wroteHeader = true
	}
	bw.buf = append(bw.buf, b...)
	return len(b), nil
}

func (bw *bufferedWriter) WriteHeader(code int) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.wroteHeader || bw.timedOut {
		return
	}
	bw.statusCode = code
	bw.wroteHeader = true
}

// flush copies the buffered response out. bw.mu must be held.
func (bw *bufferedWriter) flush() {
	if bw.header != nil {
		maps.Copy(bw.w.Header(), bw.header)
	}
	if bw.wroteHeader {
		bw.w.WriteHeader(bw.statusCode)
	}
	if len(bw.buf) > 0 {
		_, _ = bw.w.Write(bw.buf)
	}
}
