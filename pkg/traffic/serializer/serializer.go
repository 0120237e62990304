package serializer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/store"
)

// Log is the storage the serializer writes to. *store.Log implements it.
type Log interface {
	Save(ctx context.Context, rec *traffic.RequestRecord) (store.Outcome, error)
}

// Metrics receives serializer measurements. A nil Metrics is allowed.
type Metrics interface {
	SetQueueDepth(depth int)
	RecordSave(result string, duration time.Duration)
}

// Save results reported to Metrics.
const (
	ResultMerged   = string(store.OutcomeMerged)
	ResultInserted = string(store.OutcomeInserted)
	ResultDropped  = string(store.OutcomeDropped)
	ResultError    = "error"
)

// Config contains configuration for the write serializer.
type Config struct {
	// WriteTimeout bounds a single read-merge-write against the backend.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default serializer configuration.
func DefaultConfig() *Config {
	return &Config{WriteTimeout: 5 * time.Second}
}

// job is one unit of queued work: either a record to save or an exclusive
// function run between saves.
type job struct {
	rec  *traffic.RequestRecord
	fn   func(ctx context.Context) error
	done chan error
}

// Serializer funnels record saves through a FIFO queue so that at most one
// read-merge-write runs against the backend at any time.
//
// Enqueue never blocks. A drain goroutine is started when work arrives while
// idle and exits once the queue is empty.
type Serializer struct {
	log     Log
	config  *Config
	metrics Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	mu     sync.Mutex
	queue  []job
	saving bool
	idle   chan struct{}
	closed bool
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Serializer) { s.metrics = m }
}

// WithTracer sets the tracer used for save spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Serializer) { s.tracer = t }
}

// New creates a serializer writing to log.
func New(log Log, config *Config, opts ...Option) *Serializer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	s := &Serializer{
		log:    log,
		config: config,
		tracer: otel.Tracer("mercator-hq/wiretap/serializer"),
		logger: slog.Default().With("component", "traffic.serializer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue appends a snapshot of rec to the queue and returns immediately.
func (s *Serializer) Enqueue(rec *traffic.RequestRecord) error {
	return s.push(job{rec: rec.Clone()})
}

// Do runs fn in the exclusive section, after every save enqueued before it,
// and waits for its result.
func (s *Serializer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if err := s.push(job{fn: fn, done: done}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued jobs not yet started.
func (s *Serializer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush waits until the queue is empty and no save is in flight.
func (s *Serializer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.saving {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued saves to finish.
func (s *Serializer) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	queued := len(s.queue)
	s.mu.Unlock()

	s.logger.Info("shutting down write serializer", "queued", queued)
	return s.Flush(ctx)
}

func (s *Serializer) push(j job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return traffic.ErrSerializerClosed
	}

	s.queue = append(s.queue, j)
	s.setDepth(len(s.queue))

	if !s.saving {
		s.saving = true
		s.idle = make(chan struct{})
		go s.drain()
	}
	return nil
}

// drain processes jobs in FIFO order until the queue is empty.
func (s *Serializer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.saving = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		j := s.queue[0]
		s.queue[0] = job{}
		s.queue = s.queue[1:]
		s.setDepth(len(s.queue))
		s.mu.Unlock()

		if j.fn != nil {
			s.runExclusive(j)
			continue
		}
		s.save(j.rec)
	}
}

func (s *Serializer) save(rec *traffic.RequestRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "serializer.save",
		trace.WithAttributes(
			attribute.String("wiretap.record_id", rec.ID),
			attribute.Int("wiretap.status_code", rec.StatusCode),
		),
	)
	defer span.End()

	start := time.Now()
	outcome, err := s.log.Save(ctx, rec)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.record(ResultError, duration)
		s.logger.Error("failed to save record",
			"record_id", rec.ID,
			"error", err,
		)
		return
	}

	span.SetAttributes(attribute.String("wiretap.outcome", string(outcome)))
	span.SetStatus(codes.Ok, "")
	s.record(string(outcome), duration)

	if outcome == store.OutcomeDropped {
		s.logger.Debug("dropped record without url",
			"record_id", rec.ID,
		)
		return
	}
	s.logger.Debug("record saved",
		"record_id", rec.ID,
		"outcome", outcome,
		"duration", duration,
	)
}

func (s *Serializer) runExclusive(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "serializer.exclusive")
	defer span.End()

	err := j.fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	j.done <- err
}

func (s *Serializer) setDepth(n int) {
	if s.metrics != nil {
		s.metrics.SetQueueDepth(n)
	}
}

func (s *Serializer) record(result string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSave(result, d)
	}
}
