// Package telemetry groups the observability packages used by Wiretap.
//
// # Components
//
//   - logging: slog handlers with secret and header redaction
//   - metrics: Prometheus collectors for capture, saves and control commands
//   - tracing: OpenTelemetry tracer setup and HTTP propagation
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	defer tracer.Shutdown(ctx)
//
// Every component is safe to use when disabled in configuration: metrics
// become no-ops and the tracer falls back to a noop provider.
//
// # Redaction
//
// Authorization, Cookie and API key headers are masked before they reach a
// log line, as are bearer tokens and passwords embedded in strings. Custom
// patterns are added under telemetry.logging.redact_patterns.
package telemetry
