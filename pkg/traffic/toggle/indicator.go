package toggle

import (
	"context"
	"log/slog"
)

// LogIndicator reports recording state changes in the log.
type LogIndicator struct {
	logger *slog.Logger
}

// NewLogIndicator creates a LogIndicator. A nil logger uses slog.Default().
func NewLogIndicator(logger *slog.Logger) *LogIndicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogIndicator{logger: logger.With("component", "traffic.indicator")}
}

// Show implements Indicator.
func (l *LogIndicator) Show(ctx context.Context) {
	l.logger.InfoContext(ctx, "REC")
}

// Clear implements Indicator.
func (l *LogIndicator) Clear(ctx context.Context) {
	l.logger.InfoContext(ctx, "recording stopped")
}

// Gauge is a 0/1 metric. The recording_enabled gauge in
// telemetry/metrics implements it.
type Gauge interface {
	SetRecording(on bool)
}

// GaugeIndicator mirrors the recording state into a gauge.
type GaugeIndicator struct {
	gauge Gauge
}

// NewGaugeIndicator creates a GaugeIndicator.
func NewGaugeIndicator(g Gauge) *GaugeIndicator {
	return &GaugeIndicator{gauge: g}
}

// Show implements Indicator.
func (g *GaugeIndicator) Show(context.Context) { g.gauge.SetRecording(true) }

// Clear implements Indicator.
func (g *GaugeIndicator) Clear(context.Context) { g.gauge.SetRecording(false) }

// MultiIndicator fans out to several indicators.
type MultiIndicator []Indicator

// Show implements Indicator.
func (m MultiIndicator) Show(ctx context.Context) {
	for _, i := range m {
		i.Show(ctx)
	}
}

// Clear implements Indicator.
func (m MultiIndicator) Clear(ctx context.Context) {
	for _, i := range m {
		i.Clear(ctx)
	}
}
