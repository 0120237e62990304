package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"

	"mercator-hq/wiretap/pkg/config"
	"mercator-hq/wiretap/pkg/control"
	"mercator-hq/wiretap/pkg/intercept"
	"mercator-hq/wiretap/pkg/server"
	"mercator-hq/wiretap/pkg/telemetry/health"
	"mercator-hq/wiretap/pkg/telemetry/metrics"
	"mercator-hq/wiretap/pkg/telemetry/tracing"
	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/correlator"
	"mercator-hq/wiretap/pkg/traffic/override"
	"mercator-hq/wiretap/pkg/traffic/serializer"
	"mercator-hq/wiretap/pkg/traffic/store"
	"mercator-hq/wiretap/pkg/traffic/toggle"
)

// Depths past which /ready reports the save queue and the pending table as
// degraded.
const (
	maxQueueDepth      = 1000
	maxPendingRequests = 5000
)

// app is a fully wired recorder.
type app struct {
	cfg        *config.Config
	backend    store.Backend
	log        *store.Log
	serializer *serializer.Serializer
	toggle     *toggle.Toggle
	correlator *correlator.Correlator
	overrides  *override.Manager
	transport  *intercept.Transport
	server     *server.Server
	tracer     *tracing.Tracer
	detach     func()
	logger     *slog.Logger
}

// newApp builds every component for cfg. On error, anything already opened
// is closed.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "wiretap"),
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.backend, err = openBackend(&cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.log = store.NewLog(a.backend, cfg.Storage.Capacity)

	err = collector.ObserveRecords(func() float64 {
		records, err := a.log.Records(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(records))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register record gauge: %w", err)
	}

	a.serializer = serializer.New(a.log,
		&serializer.Config{WriteTimeout: cfg.Storage.WriteTimeout},
		serializer.WithMetrics(collector),
		serializer.WithTracer(a.tracer.Tracer()),
	)

	a.toggle = toggle.New(a.log, toggle.MultiIndicator{
		toggle.NewLogIndicator(nil),
		toggle.NewGaugeIndicator(collector),
	})
	if _, err = a.toggle.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load recording state: %w", err)
	}

	a.correlator = correlator.New(a.toggle, a.serializer, &correlator.Config{
		GraceDelay:    cfg.Capture.GraceDelay,
		SweepSchedule: cfg.Capture.SweepSchedule,
		PendingMaxAge: cfg.Capture.PendingMaxAge,
		Filter:        captureFilter(cfg, &cfg.Capture),
	}, correlator.WithMetrics(collector))
	if err = a.correlator.Start(); err != nil {
		return nil, fmt.Errorf("failed to start correlator: %w", err)
	}

	bus := intercept.NewBus()
	a.detach = a.correlator.Attach(bus)

	rules := override.NewMemoryRuleSet()
	a.overrides = override.NewManager(rules, &override.Config{
		RuleID:   cfg.Override.RuleID,
		Priority: cfg.Override.Priority,
	}, override.WithMetrics(collector))
	if err = a.overrides.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset override rules: %w", err)
	}

	a.transport = intercept.NewTransport(nil, bus, &intercept.Config{
		Initiator:       cfg.Proxy.Initiator,
		MaxCaptureBytes: cfg.Capture.MaxBodyBytes,
	}, intercept.WithRules(rules), intercept.WithMetrics(collector))

	dispatcher := control.NewDispatcher(a.overrides, a.toggle, a.log,
		control.WithExclusive(a.serializer),
		control.WithMetrics(collector),
		control.WithTracer(a.tracer.Tracer()),
	)

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("storage", health.StorageCheck(a.backend, store.KeyRecording))
	checker.RegisterOptionalCheck("save_queue", health.QueueCheck(a.serializer, maxQueueDepth))
	checker.RegisterOptionalCheck("pending_requests", health.QueueCheck(a.correlator, maxPendingRequests))

	a.server = server.New(cfg, control.NewHandler(dispatcher),
		server.WithProxy(intercept.NewProxy(a.transport, cfg.Proxy.UpstreamTimeout)),
		server.WithHealth(checker, health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		}),
		server.WithMetrics(collector),
		server.WithTracer(a.tracer),
	)

	return a, nil
}

// openBackend opens the configured storage backend.
func openBackend(cfg *config.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryBackend(), nil
	case "sqlite":
		b, err := store.NewSQLiteBackend(&store.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// captureFilter builds the correlator filter from the capture section. The
// recorder's own listeners are always excluded.
func captureFilter(cfg *config.Config, capture *config.CaptureConfig) *correlator.Filter {
	f := &correlator.Filter{
		SelfOrigins:  slices.Clone(capture.SelfOrigins),
		SelfHosts:    dialHosts(cfg.Server.ListenAddress),
		MaxBodyBytes: capture.MaxBodyBytes,
	}
	for _, t := range capture.TrackedTypes {
		f.TrackedTypes = append(f.TrackedTypes, traffic.ResourceType(t))
	}
	for _, host := range f.SelfHosts {
		if origin, err := config.OriginOf("http://" + host); err == nil {
			f.SelfOrigins = append(f.SelfOrigins, origin)
		}
	}
	if cfg.Proxy.Enabled {
		f.SelfHosts = append(f.SelfHosts, dialHosts(cfg.Proxy.ListenAddress)...)
	}
	return f
}

// dialHosts returns the host:port values a client uses to reach a listener
// bound to addr. A wildcard bind is reached through the loopback names.
func dialHosts(addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []string{addr}
	}
	if host != "" {
		if ip := net.ParseIP(host); ip == nil || !ip.IsUnspecified() {
			return []string{addr}
		}
	}
	return []string{
		net.JoinHostPort("127.0.0.1", port),
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("::1", port),
	}
}

// reloadCapture applies the capture section of a reloaded file to the
// running correlator. Other sections need a restart.
func (a *app) reloadCapture(next *config.Config) error {
	if errs := config.ValidateCapture(&next.Capture); len(errs) > 0 {
		return config.ValidationError{Errors: errs}
	}
	a.correlator.SetFilter(captureFilter(a.cfg, &next.Capture))
	a.transport.SetMaxCaptureBytes(next.Capture.MaxBodyBytes)
	a.logger.Info("capture filter reloaded",
		"tracked_types", next.Capture.TrackedTypes,
		"self_origins", len(next.Capture.SelfOrigins),
		"max_body_bytes", next.Capture.MaxBodyBytes,
	)
	return nil
}

// close stops intake first, then drains queued saves, then closes storage.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.detach != nil {
		a.detach()
	}
	if a.correlator != nil {
		a.correlator.Close()
	}
	if a.serializer != nil {
		if err := a.serializer.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain save queue: %w", err))
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
