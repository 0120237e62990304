package metrics

import (
	"time"

	"mercator-hq/wiretap/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TrafficMetrics tracks event correlation and record persistence.
//
// Metrics:
//   - wiretap_traffic_events_total: lifecycle events by phase and outcome
//   - wiretap_traffic_pending_requests: entries in the pending table
//   - wiretap_traffic_save_queue_depth: snapshots waiting for the serializer
//   - wiretap_traffic_saves_total: read-merge-write results
//   - wiretap_traffic_save_duration_seconds: read-merge-write latency
//   - wiretap_traffic_recording_enabled: 1 while recording is on
type TrafficMetrics struct {
	eventsTotal      *prometheus.CounterVec
	pending          prometheus.Gauge
	queueDepth       prometheus.Gauge
	savesTotal       *prometheus.CounterVec
	saveDuration     prometheus.Histogram
	recordingEnabled prometheus.Gauge
}

// NewTrafficMetrics creates and registers traffic metrics with the provided registry.
func NewTrafficMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TrafficMetrics {
	tm := &TrafficMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_total",
				Help:      "Total number of request lifecycle events handled",
			},
			[]string{"phase", "outcome"},
		),

		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "pending_requests",
				Help:      "Number of requests held in the pending table",
			},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "save_queue_depth",
				Help:      "Number of record snapshots waiting to be saved",
			},
		),

		savesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "saves_total",
				Help:      "Total number of record saves by result",
			},
			[]string{"result"},
		),

		saveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "save_duration_seconds",
				Help:      "Duration of record log read-merge-write cycles in seconds",
				Buckets:   cfg.SaveDurationBuckets,
			},
		),

		recordingEnabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "recording_enabled",
				Help:      "1 while background recording is enabled",
			},
		),
	}

	registry.MustRegister(
		tm.eventsTotal,
		tm.pending,
		tm.queueDepth,
		tm.savesTotal,
		tm.saveDuration,
		tm.recordingEnabled,
	)

	return tm
}

// RecordEvent increments the event counter.
func (tm *TrafficMetrics) RecordEvent(phase, outcome string) {
	tm.eventsTotal.WithLabelValues(phase, outcome).Inc()
}

// SetPending sets the pending table size.
func (tm *TrafficMetrics) SetPending(n int) {
	tm.pending.Set(float64(n))
}

// SetQueueDepth sets the serializer queue depth.
func (tm *TrafficMetrics) SetQueueDepth(n int) {
	tm.queueDepth.Set(float64(n))
}

// RecordSave records one save result and its duration.
func (tm *TrafficMetrics) RecordSave(result string, d time.Duration) {
	tm.savesTotal.WithLabelValues(result).Inc()
	tm.saveDuration.Observe(d.Seconds())
}

// SetRecording sets the recording gauge.
func (tm *TrafficMetrics) SetRecording(on bool) {
	if on {
		tm.recordingEnabled.Set(1)
		return
	}
	tm.recordingEnabled.Set(0)
}
