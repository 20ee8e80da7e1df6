package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/config"
	"github.com/jsamuelsen11/go-daemon-core/internal/ports"
)

// shutdownGrace applies when Shutdown is given a context without deadline.
const shutdownGrace = 10 * time.Second

var _ ports.HealthChecker = (*Server)(nil)

// Server is the admin HTTP server. It is a health checker that fails
// whenever it has no bound listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger

	// bound holds the listener address while Start is serving.
	bound atomic.Pointer[string]
}

func NewServer(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Start binds the configured address and serves until Shutdown, after which
// it returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("binding admin server: %w", err)
	}

	addr := ln.Addr().String()
	s.bound.Store(&addr)
	defer s.bound.Store(nil)

	s.logger.Info("admin server listening", slog.String("addr", addr))
	if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving admin requests on %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
	}

	s.logger.Info("admin server shutting down")
	s.bound.Store(nil)
	return s.srv.Shutdown(ctx)
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// BoundAddr is the address actually listened on, empty when not serving.
// It differs from Addr when the configured port is 0.
func (s *Server) BoundAddr() string {
	if p := s.bound.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Server) Name() string { return "admin-http" }

// HealthCheck reports [domain.ErrUnavailable] unless Start is serving.
func (s *Server) HealthCheck(_ context.Context) error {
	if s.bound.Load() == nil {
		return fmt.Errorf("admin server %s: %w", s.srv.Addr, domain.ErrUnavailable)
	}
	return nil
}
