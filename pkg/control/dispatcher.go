package control

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/wiretap/pkg/telemetry/logging"
	"mercator-hq/wiretap/pkg/telemetry/tracing"
	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/override"
)

// Overrides manages the header override rule. *override.Manager implements it.
type Overrides interface {
	SetOverride(ctx context.Context, rawURL string, headers []override.Header) error
	ClearOverride(ctx context.Context) error
	Active(ctx context.Context) (*override.Rule, error)
}

// Switch is the recording toggle. *toggle.Toggle implements it.
type Switch interface {
	Set(ctx context.Context, on bool) error
	Enabled(ctx context.Context) (bool, error)
}

// Records gives access to the record log. *store.Log implements it.
type Records interface {
	Records(ctx context.Context) ([]*traffic.RequestRecord, error)
	Clear(ctx context.Context) error
}

// Exclusive runs fn with no record save in flight. *serializer.Serializer
// implements it.
type Exclusive interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics receives command results. A nil Metrics is allowed.
type Metrics interface {
	RecordCommand(command, status string, d time.Duration)
}

// Command statuses reported to Metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Dispatcher executes control messages against the recorder components.
type Dispatcher struct {
	overrides Overrides
	recording Switch
	records   Records
	exclusive Exclusive
	metrics   Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithExclusive routes log clearing through e so it cannot interleave with
// a pending save.
func WithExclusive(e Exclusive) Option {
	return func(d *Dispatcher) { d.exclusive = e }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracer sets the tracer used for command spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(overrides Overrides, recording Switch, records Records, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		overrides: overrides,
		recording: recording,
		records:   records,
		tracer:    otel.Tracer("mercator-hq/wiretap/control"),
		logger:    slog.Default().With("component", "control"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle executes msg. Failures are reported in the response, never as a
// Go error.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) *Response {
	resp, _ := d.execute(ctx, msg)
	return resp
}

// execute runs msg and returns the response along with the failure cause,
// which the HTTP layer maps to a status code.
func (d *Dispatcher) execute(ctx context.Context, msg *Message) (*Response, error) {
	start := time.Now()
	command := string(msg.Type)

	ctx = logging.WithCommand(ctx, command)
	ctx, span := d.tracer.Start(ctx, "control."+command)
	defer span.End()
	tracing.SetCommandAttributes(span, command)

	resp, err := d.dispatch(ctx, span, msg)
	tracing.SetStatus(span, err)

	status := StatusSuccess
	if err != nil {
		status = StatusError
		resp = failure(err)
		d.logger.WarnContext(ctx, "control command failed", "error", err)
	} else {
		d.logger.DebugContext(ctx, "control command handled")
	}
	if d.metrics != nil {
		d.metrics.RecordCommand(command, status, time.Since(start))
	}
	return resp, err
}

func (d *Dispatcher) dispatch(ctx context.Context, span trace.Span, msg *Message) (*Response, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	switch msg.Type {
	case TypeSetRequestHeaders:
		if err := d.overrides.SetOverride(ctx, msg.URL, msg.Headers); err != nil {
			return nil, err
		}
		if rule, err := d.overrides.Active(ctx); err == nil && rule != nil {
			tracing.SetOverrideAttributes(span, rule.ID, rule.URLPrefix, len(rule.Headers))
		}
		return &Response{Success: true}, nil

	case TypeClearRequestHeaders:
		if err := d.overrides.ClearOverride(ctx); err != nil {
			return nil, err
		}
		return &Response{Success: true}, nil

	case TypeGetOverride:
		rule, err := d.overrides.Active(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Override: rule}, nil

	case TypeSetRecording:
		on := *msg.Enabled
		if err := d.recording.Set(ctx, on); err != nil {
			return nil, err
		}
		return &Response{Success: true, Recording: &on}, nil

	case TypeGetRecording:
		on, err := d.recording.Enabled(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Recording: &on}, nil

	case TypeGetLogs:
		logs, err := d.records.Records(ctx)
		if err != nil {
			return nil, err
		}
		if logs == nil {
			logs = []*traffic.RequestRecord{}
		}
		return &Response{Success: true, Logs: logs}, nil

	case TypeClearLogs:
		var err error
		if d.exclusive != nil {
			err = d.exclusive.Do(ctx, d.records.Clear)
		} else {
			err = d.records.Clear(ctx)
		}
		if err != nil {
			return nil, err
		}
		d.logger.InfoContext(ctx, "record log cleared")
		return &Response{Success: true}, nil
	}

	return nil, traffic.NewControlError(string(msg.Type), "unsupported message type", traffic.ErrUnknownMessage)
}
