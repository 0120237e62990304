// Package logging provides the slog handler used across Wiretap.
//
// # Overview
//
// The handler wraps the standard JSON or text handler and adds:
//   - Masking of credentials in string fields and header maps
//   - Request scoped fields (request_id, record_id, command) from the context
//   - trace_id and span_id of the active OpenTelemetry span
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRecordID(ctx, "7")
//	slog.Default().InfoContext(ctx, "record saved", "headers", rec.RequestHeaders)
//
// # Redaction
//
// Authorization, Cookie, Set-Cookie, Proxy-Authorization and X-Api-Key header
// values are reduced to a short prefix. Bearer and Basic credentials, sk- keys
// and token query parameters are masked wherever they appear in text.
package logging
