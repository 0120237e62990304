package intercept

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"mercator-hq/wiretap/pkg/traffic"
)

// Bus fans lifecycle events out to its subscribers. It implements both
// traffic.Handler, for the producer side, and traffic.EventSource.
//
// Subscribers are called synchronously in subscription order. A panicking
// subscriber is logged and skipped; delivery to the others continues.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]traffic.Handler
	nextID uint64
	logger *slog.Logger
}

var (
	_ traffic.Handler     = (*Bus)(nil)
	_ traffic.EventSource = (*Bus)(nil)
)

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[uint64]traffic.Handler),
		logger: slog.Default().With("component", "intercept.bus"),
	}
}

// Subscribe implements traffic.EventSource. The returned function is
// idempotent.
func (b *Bus) Subscribe(h traffic.Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// OnRequestBegin implements traffic.Handler.
func (b *Bus) OnRequestBegin(ctx context.Context, ev *traffic.BeginEvent) {
	b.publish(ctx, traffic.PhaseBegin, ev.RequestID, func(h traffic.Handler) { h.OnRequestBegin(ctx, ev) })
}

// OnRequestHeaders implements traffic.Handler.
func (b *Bus) OnRequestHeaders(ctx context.Context, ev *traffic.HeadersEvent) {
	b.publish(ctx, traffic.PhaseRequestHeaders, ev.RequestID, func(h traffic.Handler) { h.OnRequestHeaders(ctx, ev) })
}

// OnResponseHeaders implements traffic.Handler.
func (b *Bus) OnResponseHeaders(ctx context.Context, ev *traffic.HeadersEvent) {
	b.publish(ctx, traffic.PhaseResponseHeaders, ev.RequestID, func(h traffic.Handler) { h.OnResponseHeaders(ctx, ev) })
}

// OnRequestCompleted implements traffic.Handler.
func (b *Bus) OnRequestCompleted(ctx context.Context, ev *traffic.CompletedEvent) {
	b.publish(ctx, traffic.PhaseCompleted, ev.RequestID, func(h traffic.Handler) { h.OnRequestCompleted(ctx, ev) })
}

// OnRequestFailed implements traffic.Handler.
func (b *Bus) OnRequestFailed(ctx context.Context, ev *traffic.FailedEvent) {
	b.publish(ctx, traffic.PhaseFailed, ev.RequestID, func(h traffic.Handler) { h.OnRequestFailed(ctx, ev) })
}

func (b *Bus) publish(ctx context.Context, phase traffic.Phase, requestID string, deliver func(traffic.Handler)) {
	for _, h := range b.snapshot() {
		b.deliver(ctx, phase, requestID, h, deliver)
	}
}

func (b *Bus) deliver(ctx context.Context, phase traffic.Phase, requestID string, h traffic.Handler, deliver func(traffic.Handler)) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "panic in event handler",
				"error", r,
				"phase", phase,
				"request_id", requestID,
				"stack", string(debug.Stack()),
			)
		}
	}()
	deliver(h)
}

// snapshot returns the subscribers in subscription order.
func (b *Bus) snapshot() []traffic.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]traffic.Handler, len(ids))
	for i, id := range ids {
		out[i] = b.subs[id]
	}
	return out
}
