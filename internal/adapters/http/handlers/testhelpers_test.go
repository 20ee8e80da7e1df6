package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/go-daemon-core/internal/locking"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
	"github.com/jsamuelsen11/go-daemon-core/internal/resource"
)

func TestMain(m *testing.M) {
	if err := locking.Init(locking.Options{Logger: logging.Discard()}); err != nil {
		panic(err)
	}
	resource.Init()

	os.Exit(m.Run())
}

// withURLParams attaches chi route parameters, as the router would.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body %q", rec.Body.String())
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body %s", rec.Body.String())
}
