package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for control API request IDs.
	RequestIDKey contextKey = "request_id"

	// RecordIDKey is the context key for the id of the observed request.
	RecordIDKey contextKey = "record_id"

	// CommandKey is the context key for the control command being handled.
	CommandKey contextKey = "command"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRecordID adds the observed request id to the context.
func WithRecordID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RecordIDKey, id)
}

// GetRecordID retrieves the observed request id from the context.
func GetRecordID(ctx context.Context) string {
	if id, ok := ctx.Value(RecordIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCommand adds a control command type to the context.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CommandKey, command)
}

// GetCommand retrieves the control command type from the context.
func GetCommand(ctx context.Context) string {
	if cmd, ok := ctx.Value(CommandKey).(string); ok {
		return cmd
	}
	return ""
}

// contextAttrs extracts log fields from the context, including the trace
// and span ids of an active span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String("request_id", v))
	}
	if v := GetRecordID(ctx); v != "" {
		attrs = append(attrs, slog.String("record_id", v))
	}
	if v := GetCommand(ctx); v != "" {
		attrs = append(attrs, slog.String("command", v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}
