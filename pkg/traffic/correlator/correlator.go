package correlator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"mercator-hq/wiretap/pkg/traffic"
)

// Gate reports whether recording is enabled. *toggle.Toggle implements it.
type Gate interface {
	Enabled(ctx context.Context) (bool, error)
}

// Enqueuer accepts merged snapshots. *serializer.Serializer implements it.
type Enqueuer interface {
	Enqueue(rec *traffic.RequestRecord) error
}

// Metrics receives correlator measurements. A nil Metrics is allowed.
type Metrics interface {
	RecordEvent(phase, outcome string)
	SetPending(n int)
}

// Event outcomes reported to Metrics.
const (
	OutcomeRecorded = "recorded"
	OutcomeDisabled = "disabled"
)

// Config contains configuration for the correlator.
type Config struct {
	// GraceDelay is how long a completed or failed request stays in the
	// pending table to absorb late events.
	// Default: 5 seconds
	GraceDelay time.Duration

	// SweepSchedule is the cron expression of the stale pending sweep.
	// Default: "@every 1m"
	SweepSchedule string

	// PendingMaxAge is the age past which a never-completed entry is swept.
	// Default: 10 minutes
	PendingMaxAge time.Duration

	// Filter selects recorded events. Default: DefaultFilter().
	Filter *Filter
}

// DefaultConfig returns the default correlator configuration.
func DefaultConfig() *Config {
	return &Config{
		GraceDelay:    5 * time.Second,
		SweepSchedule: "@every 1m",
		PendingMaxAge: 10 * time.Minute,
		Filter:        DefaultFilter(),
	}
}

// Correlator turns lifecycle events into merged request records. It
// implements traffic.Handler.
type Correlator struct {
	table   *PendingTable
	gate    Gate
	out     Enqueuer
	config  *Config
	filter  atomic.Pointer[Filter]
	metrics Metrics
	sweeper *sweeper
	logger  *slog.Logger
}

var _ traffic.Handler = (*Correlator)(nil)

// Option configures a Correlator.
type Option func(*Correlator)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Correlator) { c.metrics = m }
}

// New creates a correlator that consults gate and forwards snapshots to out.
func New(gate Gate, out Enqueuer, config *Config, opts ...Option) *Correlator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Filter == nil {
		config.Filter = DefaultFilter()
	}

	c := &Correlator{
		table:  NewPendingTable(),
		gate:   gate,
		out:    out,
		config: config,
		logger: slog.Default().With("component", "traffic.correlator"),
	}
	c.filter.Store(config.Filter)
	for _, opt := range opts {
		opt(c)
	}
	c.sweeper = newSweeper(c.table, config.SweepSchedule, config.PendingMaxAge, func(int) {
		c.setPending()
	})
	return c
}

// Start starts the stale pending sweep.
func (c *Correlator) Start() error {
	return c.sweeper.start()
}

// Close stops the sweep and all removal timers.
func (c *Correlator) Close() {
	c.sweeper.stop()
	c.table.Close()
	c.setPending()
}

// Attach subscribes the correlator to src and returns the unsubscribe func.
func (c *Correlator) Attach(src traffic.EventSource) func() {
	return src.Subscribe(c)
}

// SetFilter replaces the active filter. Events already being handled keep
// the filter they started with.
func (c *Correlator) SetFilter(f *Filter) {
	if f == nil {
		f = DefaultFilter()
	}
	c.filter.Store(f)
	c.logger.Info("capture filter updated",
		"tracked_types", f.TrackedTypes,
		"self_origins", f.SelfOrigins,
		"max_body_bytes", f.MaxBodyBytes,
	)
}

// Filter returns the active filter.
func (c *Correlator) Filter() *Filter {
	return c.filter.Load()
}

// Pending returns the number of in-flight requests.
func (c *Correlator) Pending() int {
	return c.table.Len()
}

// OnRequestBegin implements traffic.Handler.
func (c *Correlator) OnRequestBegin(ctx context.Context, ev *traffic.BeginEvent) {
	c.handle(ctx, traffic.PhaseBegin, &ev.EventMeta, func(f *Filter) *traffic.RequestRecord {
		rec := partialFrom(&ev.EventMeta)
		rec.Method = ev.Method
		rec.RequestBody = f.DecodeBody(ev.Body)
		return rec
	}, false)
}

// OnRequestHeaders implements traffic.Handler.
func (c *Correlator) OnRequestHeaders(ctx context.Context, ev *traffic.HeadersEvent) {
	c.handle(ctx, traffic.PhaseRequestHeaders, &ev.EventMeta, func(*Filter) *traffic.RequestRecord {
		rec := partialFrom(&ev.EventMeta)
		rec.RequestHeaders = ev.Headers
		return rec
	}, false)
}

// OnResponseHeaders implements traffic.Handler.
func (c *Correlator) OnResponseHeaders(ctx context.Context, ev *traffic.HeadersEvent) {
	c.handle(ctx, traffic.PhaseResponseHeaders, &ev.EventMeta, func(*Filter) *traffic.RequestRecord {
		rec := partialFrom(&ev.EventMeta)
		rec.ResponseHeaders = ev.Headers
		return rec
	}, false)
}

// OnRequestCompleted implements traffic.Handler.
func (c *Correlator) OnRequestCompleted(ctx context.Context, ev *traffic.CompletedEvent) {
	c.handle(ctx, traffic.PhaseCompleted, &ev.EventMeta, func(*Filter) *traffic.RequestRecord {
		rec := partialFrom(&ev.EventMeta)
		rec.StatusCode = ev.StatusCode
		return rec
	}, true)
}

// OnRequestFailed implements traffic.Handler.
func (c *Correlator) OnRequestFailed(ctx context.Context, ev *traffic.FailedEvent) {
	c.handle(ctx, traffic.PhaseFailed, &ev.EventMeta, func(*Filter) *traffic.RequestRecord {
		rec := partialFrom(&ev.EventMeta)
		rec.Error = ev.Error
		return rec
	}, true)
}

func (c *Correlator) handle(ctx context.Context, phase traffic.Phase, meta *traffic.EventMeta, build func(*Filter) *traffic.RequestRecord, final bool) {
	if meta.RequestID == "" {
		c.logger.Debug("ignoring event without request id", "phase", phase)
		return
	}

	f := c.filter.Load()
	if reason := f.Check(meta); reason != "" {
		c.recordEvent(phase, reason)
		return
	}

	enabled, err := c.gate.Enabled(ctx)
	if err != nil {
		c.logger.Warn("failed to read recording state, treating as disabled",
			"request_id", meta.RequestID,
			"error", err,
		)
	}
	if !enabled {
		c.recordEvent(phase, OutcomeDisabled)
		return
	}

	c.table.Apply(meta.RequestID, build(f), func(snapshot *traffic.RequestRecord) {
		if err := c.out.Enqueue(snapshot); err != nil {
			c.logger.Warn("failed to enqueue record",
				"request_id", meta.RequestID,
				"phase", phase,
				"error", err,
			)
		}
	})

	if final {
		c.table.ScheduleRemoval(meta.RequestID, c.config.GraceDelay)
	}

	c.recordEvent(phase, OutcomeRecorded)
	c.setPending()

	c.logger.Debug("event merged",
		"request_id", meta.RequestID,
		"phase", phase,
	)
}

func partialFrom(meta *traffic.EventMeta) *traffic.RequestRecord {
	ts := meta.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return &traffic.RequestRecord{
		ID:        meta.RequestID,
		URL:       meta.URL,
		Type:      meta.Type,
		Timestamp: ts,
	}
}

func (c *Correlator) recordEvent(phase traffic.Phase, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordEvent(string(phase), outcome)
	}
}

func (c *Correlator) setPending() {
	if c.metrics != nil {
		c.metrics.SetPending(c.Pending())
	}
}
