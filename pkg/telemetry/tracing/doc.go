// Package tracing provides OpenTelemetry tracing for Wiretap.
//
// Spans cover control commands, header override updates and record log
// saves. When tracing is disabled a noop tracer is used.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	router.Use(tracing.Middleware(tracer))
//
// # Exporter
//
// Spans are exported over OTLP gRPC to telemetry.tracing.endpoint.
//
// # Sampling
//
//   - always: every trace
//   - never: no trace
//   - ratio: telemetry.tracing.sample_ratio of traces by trace id
//
// Each strategy respects the sampling decision of an incoming traceparent.
package tracing
