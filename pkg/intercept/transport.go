package intercept

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/wiretap/pkg/traffic"
)

// RuleApplier applies header override rules to an outgoing request.
// *override.MemoryRuleSet implements it.
type RuleApplier interface {
	Apply(req *http.Request, rt traffic.ResourceType) int
}

// Metrics receives per-request transport results. A nil Metrics is allowed.
type Metrics interface {
	RecordProxied(host, result string)
}

// Transport results reported to Metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Config contains configuration for the interception transport.
type Config struct {
	// Initiator is reported for requests carrying neither Origin nor Referer.
	Initiator string

	// MaxCaptureBytes is how much of a request body is buffered for the
	// begin event. The full body is always forwarded. One byte more than
	// the limit is captured so consumers can detect truncation.
	// Zero captures the whole body.
	// Default: 64KiB
	MaxCaptureBytes int
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() *Config {
	return &Config{MaxCaptureBytes: 64 * 1024}
}

// Transport is an http.RoundTripper that emits lifecycle events for every
// request it carries and applies override rules before sending.
//
// Each round trip gets a fresh UUID request id. Events are emitted in
// lifecycle order: begin, request headers, response headers, then completed
// once the response body is fully read or closed, or failed on a transport
// error.
type Transport struct {
	base    http.RoundTripper
	events  traffic.Handler
	rules   RuleApplier
	metrics Metrics
	config  *Config
	logger  *slog.Logger
	now     func() time.Time

	// captureLimit starts at config.MaxCaptureBytes and follows reloads.
	captureLimit atomic.Int64
}

var _ http.RoundTripper = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithRules sets the rule set applied to outgoing requests.
func WithRules(r RuleApplier) Option {
	return func(t *Transport) { t.rules = r }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// NewTransport wraps base, reporting events to events. A nil base uses
// http.DefaultTransport.
func NewTransport(base http.RoundTripper, events traffic.Handler, config *Config, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if config == nil {
		config = DefaultConfig()
	}
	t := &Transport{
		base:   base,
		events: events,
		config: config,
		logger: slog.Default().With("component", "intercept.transport"),
		now:    time.Now,
	}
	t.captureLimit.Store(int64(config.MaxCaptureBytes))
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetMaxCaptureBytes changes the body capture limit for requests started
// after the call. Zero captures the whole body.
func (t *Transport) SetMaxCaptureBytes(n int) {
	t.captureLimit.Store(int64(max(n, 0)))
}

// MaxCaptureBytes returns the current body capture limit.
func (t *Transport) MaxCaptureBytes() int {
	return int(t.captureLimit.Load())
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified; overrides are applied to a clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Events outlive the request context: completion is reported when the
	// caller closes the body, often after the context is done.
	ctx := context.WithoutCancel(req.Context())

	out := req.Clone(req.Context())
	meta := traffic.EventMeta{
		RequestID: uuid.NewString(),
		URL:       req.URL.String(),
		Type:      ResourceTypeOf(req),
		Initiator: InitiatorOf(req),
	}
	if meta.Initiator == "" {
		meta.Initiator = t.config.Initiator
	}

	body, err := t.captureBody(out)
	if err != nil {
		t.logger.Warn("failed to buffer request body",
			"request_id", meta.RequestID,
			"error", err,
		)
	}

	t.events.OnRequestBegin(ctx, &traffic.BeginEvent{
		EventMeta: t.stamp(meta),
		Method:    req.Method,
		Body:      body,
	})

	if t.rules != nil {
		if n := t.rules.Apply(out, meta.Type); n > 0 {
			t.logger.Debug("override rules applied",
				"request_id", meta.RequestID,
				"rules", n,
				"headers", out.Header,
			)
		}
	}

	t.events.OnRequestHeaders(ctx, &traffic.HeadersEvent{
		EventMeta: t.stamp(meta),
		Headers:   requestHeaders(out),
	})

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.events.OnRequestFailed(ctx, &traffic.FailedEvent{
			EventMeta: t.stamp(meta),
			Error:     err.Error(),
		})
		t.record(out.URL.Host, ResultError)
		return nil, err
	}

	t.events.OnResponseHeaders(ctx, &traffic.HeadersEvent{
		EventMeta: t.stamp(meta),
		Headers:   flatten(resp.Header),
	})

	finish := &finisher{t: t, ctx: ctx, meta: meta, status: resp.StatusCode, host: out.URL.Host}
	if resp.Body == nil || resp.Body == http.NoBody || resp.StatusCode == http.StatusSwitchingProtocols {
		// 101 bodies are the upgraded connection and must stay unwrapped.
		finish.done(nil)
		return resp, nil
	}
	resp.Body = &observedBody{ReadCloser: resp.Body, finish: finish}
	return resp, nil
}

func (t *Transport) stamp(meta traffic.EventMeta) traffic.EventMeta {
	meta.Time = t.now()
	return meta
}

func (t *Transport) record(host, result string) {
	if t.metrics != nil {
		t.metrics.RecordProxied(host, result)
	}
}

// captureBody buffers up to limit+1 bytes of req's body and replaces the
// body with one that replays the buffered prefix.
func (t *Transport) captureBody(req *http.Request) (*traffic.RawBody, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	limit := t.captureLimit.Load()
	var r io.Reader = req.Body
	if limit > 0 {
		r = io.LimitReader(req.Body, limit+1)
	}
	buf, err := io.ReadAll(r)
	req.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(buf), req.Body),
		Closer: req.Body,
	}
	if err != nil {
		return nil, err
	}

	truncated := limit > 0 && int64(len(buf)) > limit
	if !truncated {
		if form, ok := parseForm(req.Header.Get("Content-Type"), buf); ok {
			return &traffic.RawBody{FormData: form}, nil
		}
	}
	return &traffic.RawBody{Raw: buf, Truncated: truncated}, nil
}

// parseForm decodes urlencoded and multipart bodies into form fields. File
// parts are reported by filename.
func parseForm(contentType string, body []byte) (map[string][]string, bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, false
		}
		return values, true

	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, false
		}
		form := make(map[string][]string)
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return form, true
			}
			if err != nil {
				return nil, false
			}
			name := part.FormName()
			if name == "" {
				continue
			}
			if filename := part.FileName(); filename != "" {
				form[name] = append(form[name], filename)
				continue
			}
			value, err := io.ReadAll(part)
			if err != nil {
				return nil, false
			}
			form[name] = append(form[name], string(value))
		}
	}
	return nil, false
}

// requestHeaders flattens the headers sent for req, including Host.
func requestHeaders(req *http.Request) map[string]string {
	h := flatten(req.Header)
	if req.Host != "" {
		h["Host"] = req.Host
	} else if req.URL != nil && req.URL.Host != "" {
		h["Host"] = req.URL.Host
	}
	return h
}

// flatten joins repeated header values with ", ".
func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

type replayBody struct {
	io.Reader
	io.Closer
}

// finisher emits the terminal event exactly once.
type finisher struct {
	t      *Transport
	ctx    context.Context
	meta   traffic.EventMeta
	status int
	host   string
	once   sync.Once
}

func (f *finisher) done(err error) {
	f.once.Do(func() {
		if err != nil {
			f.t.events.OnRequestFailed(f.ctx, &traffic.FailedEvent{
				EventMeta: f.t.stamp(f.meta),
				Error:     err.Error(),
			})
			f.t.record(f.host, ResultError)
			return
		}
		f.t.events.OnRequestCompleted(f.ctx, &traffic.CompletedEvent{
			EventMeta:  f.t.stamp(f.meta),
			StatusCode: f.status,
		})
		f.t.record(f.host, ResultSuccess)
	})
}

// observedBody reports completion on EOF or Close, and failure on a read
// error.
type observedBody struct {
	io.ReadCloser
	finish *finisher
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	switch {
	case errors.Is(err, io.EOF):
		b.finish.done(nil)
	case err != nil:
		b.finish.done(err)
	}
	return n, err
}

func (b *observedBody) Close() error {
	err := b.ReadCloser.Close()
	b.finish.done(nil)
	return err
}
