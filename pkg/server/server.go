// Package server hosts the control API and the forward proxy listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"mercator-hq/wiretap/pkg/config"
	"mercator-hq/wiretap/pkg/server/middleware"
	"mercator-hq/wiretap/pkg/telemetry/health"
	"mercator-hq/wiretap/pkg/telemetry/metrics"
	"mercator-hq/wiretap/pkg/telemetry/tracing"
)

// ControlRoutes provides the control API router. *control.Handler
// implements it.
type ControlRoutes interface {
	Routes() chi.Router
}

// Server runs the control API listener and, when configured, the forward
// proxy listener.
type Server struct {
	config  *config.Config
	control ControlRoutes
	proxy   http.Handler
	health  *health.Checker
	version health.VersionInfo
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	logger  *slog.Logger

	mu          sync.RWMutex
	isRunning   bool
	controlSrv  *http.Server
	proxySrv    *http.Server
	controlAddr net.Addr
	proxyAddr   net.Addr
	ready       chan struct{}
	readyOnce   sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithProxy serves h on the proxy listener.
func WithProxy(h http.Handler) Option {
	return func(s *Server) { s.proxy = h }
}

// WithHealth mounts the health endpoints.
func WithHealth(c *health.Checker, info health.VersionInfo) Option {
	return func(s *Server) {
		s.health = c
		s.version = info
	}
}

// WithMetrics mounts the Prometheus endpoint.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithTracer adds server spans to control requests.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// New creates a server for cfg.
func New(cfg *config.Config, control ControlRoutes, opts ...Option) *Server {
	s := &Server{
		config:  cfg,
		control: control,
		logger:  slog.Default().With("component", "server"),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listeners and serves until ctx is canceled or a listener
// fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	controlLn, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	s.controlAddr = controlLn.Addr()
	s.controlSrv = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	var proxyLn net.Listener
	if s.proxy != nil && s.config.Proxy.Enabled {
		proxyLn, err = net.Listen("tcp", s.config.Proxy.ListenAddress)
		if err != nil {
			controlLn.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to listen on %s: %w", s.config.Proxy.ListenAddress, err)
		}
		s.proxyAddr = proxyLn.Addr()
		// No write timeout: relayed responses stream for as long as upstream sends.
		s.proxySrv = &http.Server{
			Handler:           s.proxy,
			ReadHeaderTimeout: s.config.Server.ReadTimeout,
			IdleTimeout:       s.config.Server.IdleTimeout,
			MaxHeaderBytes:    s.config.Server.MaxHeaderBytes,
		}
	}

	s.isRunning = true
	s.readyOnce.Do(func() { close(s.ready) })
	s.mu.Unlock()

	errChan := make(chan error, 2)
	serve := func(name string, srv *http.Server, ln net.Listener) {
		s.logger.Info("starting listener", "listener", name, "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("%s server error: %w", name, err)
		}
	}

	go serve("control", s.controlSrv, controlLn)
	if proxyLn != nil {
		go serve("proxy", s.proxySrv, proxyLn)
	}

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown gracefully stops both listeners within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	controlSrv, proxySrv := s.controlSrv, s.proxySrv
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range []*http.Server{proxySrv, controlSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			errs = append(errs, err)
		}
	}

	s.logger.Info("server stopped")
	if len(errs) > 0 {
		return fmt.Errorf("server shutdown error: %w", errors.Join(errs...))
	}
	return nil
}

// Handler returns the control API handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	if s.tracer != nil && s.tracer.Enabled() {
		r.Use(tracing.Middleware(s.tracer))
	}
	r.Use(middleware.CORSMiddleware(middleware.CORSFromConfig(s.config.Server.CORS)))

	r.Mount("/api/v1", s.control.Routes())

	if s.health != nil && s.config.Telemetry.Health.Enabled {
		s.health.Mount(r, s.config.Telemetry.Health, s.version)
	}
	if s.metrics != nil && s.config.Telemetry.Metrics.Enabled {
		r.Handle(s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	return r
}

// Ready is closed once the listeners are bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ControlAddr returns the bound control address, nil before Start.
func (s *Server) ControlAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controlAddr
}

// ProxyAddr returns the bound proxy address, nil when the proxy is off.
func (s *Server) ProxyAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proxyAddr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
