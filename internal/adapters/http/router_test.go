package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapthttp "github.com/jsamuelsen11/go-daemon-core/internal/adapters/http"
	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/go-daemon-core/internal/coro"
	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
	"github.com/jsamuelsen11/go-daemon-core/mocks"
)

func TestMain(m *testing.M) {
	if err := locking.Init(locking.Options{Logger: logging.Discard()}); err != nil {
		panic(err)
	}
	resource.Init()
	coro.Init(coro.Options{Logger: logging.Discard()})

	os.Exit(m.Run())
}

// newTestRouter builds the admin router over a pool tree holding one
// nested "workers" pool.
func newTestRouter(t *testing.T, mws ...func(http.Handler) http.Handler) (http.Handler, *mocks.MockHealthRegistry) {
	t.Helper()
	registry := mocks.NewMockHealthRegistry(t)

	root := resource.NewPool(nil, "router root")
	resource.NewPool(root, "workers")
	t.Cleanup(root.Close)

	return adapthttp.NewRouter(handlers.NewHealthHandler(registry), handlers.NewDebugHandler(root), mws...), registry
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	mux, ok := router.(*chi.Mux)
	require.True(t, ok, "router is %T", router)

	var routes []string
	require.NoError(t, chi.Walk(mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	}))

	assert.ElementsMatch(t, []string{
		"GET /health/live",
		"GET /health/ready",
		"GET /debug/kinds",
		"GET /debug/domains",
		"GET /debug/pools",
		"GET /debug/pools/{name}",
		"GET /debug/process",
	}, routes)
}

func TestRouter_MiddlewareWrapsRoutes(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	router, _ := newTestRouter(t, record)
	serve(router, http.MethodGet, "/health/live")
	serve(router, http.MethodGet, "/debug/kinds")

	assert.Equal(t, []string{"/health/live", "/debug/kinds"}, seen)
}

func TestRouter_ReadinessRunsOnCoroutine(t *testing.T) {
	t.Parallel()

	requests := resource.NewPool(nil, "http")
	t.Cleanup(requests.Close)

	router, registry := newTestRouter(t, middleware.Coroutine(requests, time.Second))
	registry.EXPECT().CheckAll(mock.MatchedBy(func(ctx context.Context) bool {
		return locking.LookupStack(ctx) != nil && coro.FromContext(ctx) != nil
	})).Return(map[string]error{"pool:Root": nil})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/ready").Code)
}

func TestRouter_Statuses(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	tests := []struct {
		method string
		target string
		code   int
	}{
		{http.MethodGet, "/debug/pools/workers", http.StatusOK},
		{http.MethodGet, "/debug/pools/missing", http.StatusNotFound},
		{http.MethodGet, "/debug/domains?kind=bogus", http.StatusBadRequest},
		{http.MethodGet, "/nonexistent", http.StatusNotFound},
		{http.MethodPost, "/debug/domains", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, serve(router, tt.method, tt.target).Code, "%s %s", tt.method, tt.target)
	}
}
