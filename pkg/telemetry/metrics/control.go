package metrics

import (
	"time"

	"mercator-hq/wiretap/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ControlMetrics tracks the control API, override updates and proxied traffic.
//
// Metrics:
//   - wiretap_traffic_commands_total: control commands by type and status
//   - wiretap_traffic_command_duration_seconds: control command latency
//   - wiretap_traffic_override_updates_total: override rule updates
//   - wiretap_traffic_proxied_requests_total: forward proxy round trips by host
type ControlMetrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	overrideUpdates *prometheus.CounterVec
	proxiedTotal    *prometheus.CounterVec
}

// NewControlMetrics creates and registers control metrics with the provided registry.
func NewControlMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ControlMetrics {
	cm := &ControlMetrics{
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "commands_total",
				Help:      "Total number of control commands handled",
			},
			[]string{"command", "status"},
		),

		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "command_duration_seconds",
				Help:      "Duration of control commands in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		overrideUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "override_updates_total",
				Help:      "Total number of header override rule updates",
			},
			[]string{"op", "result"},
		),

		proxiedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxied_requests_total",
				Help:      "Total number of requests forwarded by the proxy",
			},
			[]string{"host", "result"},
		),
	}

	registry.MustRegister(
		cm.commandsTotal,
		cm.commandDuration,
		cm.overrideUpdates,
		cm.proxiedTotal,
	)

	return cm
}

// RecordCommand records a handled control command.
func (cm *ControlMetrics) RecordCommand(command, status string, d time.Duration) {
	cm.commandsTotal.WithLabelValues(command, status).Inc()
	cm.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// RecordOverrideUpdate records an override rule update.
func (cm *ControlMetrics) RecordOverrideUpdate(op, result string) {
	cm.overrideUpdates.WithLabelValues(op, result).Inc()
}

// RecordProxied records a forwarded request.
func (cm *ControlMetrics) RecordProxied(host, result string) {
	cm.proxiedTotal.WithLabelValues(host, result).Inc()
}
