package metrics

import (
	"net/http"
	"sync"
	"time"

	"mercator-hq/wiretap/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherLabel replaces label values once a cardinality limit is reached.
const OtherLabel = "other"

// Collector owns every Prometheus metric in Wiretap. It satisfies the
// metrics interfaces of the serializer, correlator, override manager, toggle
// gauge and control dispatcher, so one instance is passed to each of them.
//
// All methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	traffic *TrafficMetrics
	control *ControlMetrics

	// hosts bounds the host label of proxied requests
	hosts *CardinalityLimiter

	scrapeOnce sync.Once
	scrape     http.Handler
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.SaveDurationBuckets) == 0 {
		cfg.SaveDurationBuckets = append([]float64(nil), config.DefaultSaveDurationBuckets...)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		traffic:  NewTrafficMetrics(cfg, registry),
		control:  NewControlMetrics(cfg, registry),
		hosts:    NewCardinalityLimiter(500),
	}
}

// RecordEvent records a lifecycle event handled by the correlator.
func (c *Collector) RecordEvent(phase, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.traffic.RecordEvent(phase, outcome)
}

// SetPending records the pending table size.
func (c *Collector) SetPending(n int) {
	if !c.config.Enabled {
		return
	}
	c.traffic.SetPending(n)
}

// SetQueueDepth records the serializer queue depth.
func (c *Collector) SetQueueDepth(n int) {
	if !c.config.Enabled {
		return
	}
	c.traffic.SetQueueDepth(n)
}

// RecordSave records a record log save.
func (c *Collector) RecordSave(result string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.traffic.RecordSave(result, d)
}

// SetRecording records whether recording is enabled.
func (c *Collector) SetRecording(on bool) {
	if !c.config.Enabled {
		return
	}
	c.traffic.SetRecording(on)
}

// RecordOverrideUpdate records an override rule update.
func (c *Collector) RecordOverrideUpdate(op, result string) {
	if !c.config.Enabled {
		return
	}
	c.control.RecordOverrideUpdate(op, result)
}

// RecordCommand records a control command.
func (c *Collector) RecordCommand(command, status string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.control.RecordCommand(command, status, d)
}

// RecordProxied records a forwarded request. Hosts past the cardinality
// limit are aggregated under OtherLabel.
func (c *Collector) RecordProxied(host, result string) {
	if !c.config.Enabled {
		return
	}
	if !c.hosts.Allow(host) {
		host = OtherLabel
	}
	c.control.RecordProxied(host, result)
}

// ObserveRecords registers a gauge that reports fn on every scrape.
// It is used for the number of stored records.
func (c *Collector) ObserveRecords(fn func() float64) error {
	if !c.config.Enabled {
		return nil
	}
	return c.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      "records",
			Help:      "Number of records in the record log",
		},
		fn,
	))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already tracked or still fits under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
