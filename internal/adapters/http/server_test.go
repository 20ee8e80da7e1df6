package http_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapthttp "github.com/jsamuelsen11/go-daemon-core/internal/adapters/http"
	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/config"
)

func testServerConfig(port int) config.ServerConfig {
	return config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// startServer runs s.Start in the background and waits until it serves.
func startServer(t *testing.T, s *adapthttp.Server) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool {
		return s.HealthCheck(context.Background()) == nil
	}, 2*time.Second, 5*time.Millisecond, "server never started serving")
	return errCh
}

func TestServer_Addr(t *testing.T) {
	t.Parallel()

	s := adapthttp.NewServer(testServerConfig(9090), http.NotFoundHandler(), nil)
	assert.Equal(t, "127.0.0.1:9090", s.Addr())
	assert.Empty(t, s.BoundAddr())
	assert.Equal(t, "admin-http", s.Name())
}

func TestServer_ServesAndShutsDown(t *testing.T) {
	t.Parallel()

	s := adapthttp.NewServer(testServerConfig(0), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ready")
	}), slog.New(slog.DiscardHandler))

	errCh := startServer(t, s)
	require.NotEmpty(t, s.BoundAddr())

	resp, err := http.Get("http://" + s.BoundAddr() + "/health/ready")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ready", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-errCh)

	assert.Empty(t, s.BoundAddr())
	assert.ErrorIs(t, s.HealthCheck(context.Background()), domain.ErrUnavailable)
}

func TestServer_ShutdownWithoutDeadline(t *testing.T) {
	t.Parallel()

	s := adapthttp.NewServer(testServerConfig(0), http.NotFoundHandler(), nil)
	errCh := startServer(t, s)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, <-errCh)
}

func TestServer_HealthBeforeStart(t *testing.T) {
	t.Parallel()

	s := adapthttp.NewServer(testServerConfig(0), http.NotFoundHandler(), nil)
	assert.ErrorIs(t, s.HealthCheck(context.Background()), domain.ErrUnavailable)
}

func TestServer_BindFailure(t *testing.T) {
	t.Parallel()

	first := adapthttp.NewServer(testServerConfig(0), http.NotFoundHandler(), nil)
	errCh := startServer(t, first)
	t.Cleanup(func() {
		_ = first.Shutdown(context.Background())
		<-errCh
	})

	_, portStr, err := net.SplitHostPort(first.BoundAddr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	second := adapthttp.NewServer(testServerConfig(port), http.NotFoundHandler(), nil)
	assert.ErrorContains(t, second.Start(), "binding admin server")
	assert.ErrorIs(t, second.HealthCheck(context.Background()), domain.ErrUnavailable)
}
