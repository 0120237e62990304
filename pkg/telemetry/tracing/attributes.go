package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "wiretap.*" namespace.
const (
	AttrRecordID   = "wiretap.record_id"
	AttrRecordURL  = "wiretap.url"
	AttrRecordType = "wiretap.type"
	AttrPhase      = "wiretap.phase"
	AttrStatusCode = "wiretap.status_code"
	AttrOutcome    = "wiretap.outcome"

	AttrCommand      = "wiretap.command"
	AttrOverrideRule = "wiretap.override.rule_id"
	AttrOverrideURL  = "wiretap.override.url_prefix"
	AttrHeaderCount  = "wiretap.override.headers"
)

// ServerSpan returns start options for a control API server span.
func ServerSpan(r *http.Request) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", r.URL.Path),
	)
}

// SetRecordAttributes describes the observed request a span is about.
func SetRecordAttributes(span trace.Span, id, url, typ string) {
	span.SetAttributes(
		attribute.String(AttrRecordID, id),
		attribute.String(AttrRecordURL, url),
		attribute.String(AttrRecordType, typ),
	)
}

// SetCommandAttributes describes a control command.
func SetCommandAttributes(span trace.Span, command string) {
	span.SetAttributes(attribute.String(AttrCommand, command))
}

// SetOverrideAttributes describes a header override update.
func SetOverrideAttributes(span trace.Span, ruleID int, urlPrefix string, headers int) {
	span.SetAttributes(
		attribute.Int(AttrOverrideRule, ruleID),
		attribute.String(AttrOverrideURL, urlPrefix),
		attribute.Int(AttrHeaderCount, headers),
	)
}
