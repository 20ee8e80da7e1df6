package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-daemon-core/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/mocks"
)

func TestLiveness(t *testing.T) {
	t.Parallel()

	// Liveness never consults the registry; the mock fails on any call.
	h := handlers.NewHealthHandler(mocks.NewMockHealthRegistry(t))

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", http.NoBody))

	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, dto.HealthResponse{Status: "ok"}, decodeJSON[dto.HealthResponse](t, rec))
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	threads := fmt.Errorf("threads 5000 over limit 4096: %w", domain.ErrUnavailable)

	tests := []struct {
		name    string
		results map[string]error
		code    int
		want    dto.HealthResponse
	}{
		{
			name:    "no checkers",
			results: map[string]error{},
			code:    http.StatusOK,
			want:    dto.HealthResponse{Status: "ready"},
		},
		{
			name:    "all pass",
			results: map[string]error{"pool:Root": nil, "admin-http": nil},
			code:    http.StatusOK,
			want: dto.HealthResponse{
				Status: "ready",
				Checks: map[string]string{"pool:Root": "ok", "admin-http": "ok"},
			},
		},
		{
			name: "failures listed in name order",
			results: map[string]error{
				"process":    threads,
				"pool:Root":  nil,
				"admin-http": errors.New("admin server 127.0.0.1:8081: unavailable"),
			},
			code: http.StatusServiceUnavailable,
			want: dto.HealthResponse{
				Status: "not_ready",
				Checks: map[string]string{
					"process":    threads.Error(),
					"pool:Root":  "ok",
					"admin-http": "admin server 127.0.0.1:8081: unavailable",
				},
				Failed: []string{"admin-http", "process"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := mocks.NewMockHealthRegistry(t)
			registry.EXPECT().CheckAll(mock.Anything).Return(tt.results).Once()

			rec := httptest.NewRecorder()
			handlers.NewHealthHandler(registry).Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))

			requireStatus(t, rec, tt.code)
			assert.Equal(t, tt.want, decodeJSON[dto.HealthResponse](t, rec))
		})
	}
}
