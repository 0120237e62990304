package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/wiretap/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:             true,
		Namespace:           "test",
		Subsystem:           "traffic",
		SaveDurationBuckets: []float64{0.001, 0.01, 0.1, 1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_DefaultsApplied(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != config.DefaultMetricsNamespace || cfg.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("expected default namespace and subsystem, got %q/%q", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.SaveDurationBuckets) == 0 {
		t.Error("expected default save buckets")
	}
}

func TestCollector_TrafficMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordEvent("before_request", "recorded")
	collector.RecordEvent("before_request", "recorded")
	collector.RecordEvent("completed", "disabled")
	collector.SetPending(3)
	collector.SetQueueDepth(2)
	collector.RecordSave("inserted", 2*time.Millisecond)
	collector.RecordSave("merged", time.Millisecond)
	collector.SetRecording(true)

	tm := collector.traffic
	if got := testutil.ToFloat64(tm.eventsTotal.WithLabelValues("before_request", "recorded")); got != 2 {
		t.Errorf("expected 2 recorded events, got %v", got)
	}
	if got := testutil.ToFloat64(tm.eventsTotal.WithLabelValues("completed", "disabled")); got != 1 {
		t.Errorf("expected 1 disabled event, got %v", got)
	}
	if got := testutil.ToFloat64(tm.pending); got != 3 {
		t.Errorf("expected pending 3, got %v", got)
	}
	if got := testutil.ToFloat64(tm.queueDepth); got != 2 {
		t.Errorf("expected queue depth 2, got %v", got)
	}
	if got := testutil.ToFloat64(tm.savesTotal.WithLabelValues("inserted")); got != 1 {
		t.Errorf("expected 1 inserted save, got %v", got)
	}
	if got := testutil.ToFloat64(tm.recordingEnabled); got != 1 {
		t.Errorf("expected recording gauge 1, got %v", got)
	}

	collector.SetRecording(false)
	if got := testutil.ToFloat64(tm.recordingEnabled); got != 0 {
		t.Errorf("expected recording gauge 0, got %v", got)
	}
}

func TestCollector_ControlMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCommand("GET_LOGS", "ok", 3*time.Millisecond)
	collector.RecordOverrideUpdate("set", "ok")
	collector.RecordOverrideUpdate("set", "error")
	collector.RecordProxied("api.example.com", "ok")

	cm := collector.control
	if got := testutil.ToFloat64(cm.commandsTotal.WithLabelValues("GET_LOGS", "ok")); got != 1 {
		t.Errorf("expected 1 command, got %v", got)
	}
	if got := testutil.ToFloat64(cm.overrideUpdates.WithLabelValues("set", "error")); got != 1 {
		t.Errorf("expected 1 failed override update, got %v", got)
	}
	if got := testutil.ToFloat64(cm.proxiedTotal.WithLabelValues("api.example.com", "ok")); got != 1 {
		t.Errorf("expected 1 proxied request, got %v", got)
	}
}

func TestCollector_ProxiedHostCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.hosts = NewCardinalityLimiter(2)

	for i := 0; i < 5; i++ {
		collector.RecordProxied(fmt.Sprintf("host-%d.test", i), "ok")
	}

	if got := testutil.ToFloat64(collector.control.proxiedTotal.WithLabelValues(OtherLabel, "ok")); got != 3 {
		t.Errorf("expected 3 requests aggregated under %q, got %v", OtherLabel, got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordEvent("completed", "recorded")
	collector.SetRecording(true)
	if err := collector.ObserveRecords(func() float64 { return 1 }); err != nil {
		t.Fatalf("ObserveRecords() failed: %v", err)
	}

	if got := testutil.ToFloat64(collector.traffic.eventsTotal.WithLabelValues("completed", "recorded")); got != 0 {
		t.Errorf("expected no events recorded while disabled, got %v", got)
	}
	if got := testutil.ToFloat64(collector.traffic.recordingEnabled); got != 0 {
		t.Errorf("expected recording gauge untouched while disabled, got %v", got)
	}
}

func TestCollector_ObserveRecords(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if err := collector.ObserveRecords(func() float64 { return 42 }); err != nil {
		t.Fatalf("ObserveRecords() failed: %v", err)
	}

	expected := `
# HELP test_traffic_records Number of records in the record log
# TYPE test_traffic_records gauge
test_traffic_records 42
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_traffic_records"); err != nil {
		t.Errorf("unexpected gauge output: %v", err)
	}

	if err := collector.ObserveRecords(func() float64 { return 0 }); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordSave("inserted", time.Millisecond)

	// A second call must not register the scrape counter again.
	_ = collector.Handler()
	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `test_traffic_saves_total{result="inserted"} 1`) {
		t.Errorf("expected saves counter in scrape output, got:\n%s", body)
	}
	if !strings.Contains(string(body), "promhttp_metric_handler_requests_total") {
		t.Errorf("expected scrape counter in output, got:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two values to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected third value to be rejected")
	}
	if !cl.Allow("a") {
		t.Error("expected known value to stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("expected count 2, got %d", cl.Count())
	}
}
