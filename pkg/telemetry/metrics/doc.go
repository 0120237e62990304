// Package metrics provides Prometheus metrics collection for Wiretap.
//
// # Metrics Categories
//
//   - Traffic: lifecycle events, pending table size, save queue depth,
//     save results and latency, recording state, stored record count
//   - Control: control commands, override updates, proxied requests
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	ser := serializer.New(log, serializer.DefaultConfig(), serializer.WithMetrics(collector))
//	corr := correlator.New(tg, ser, correlator.DefaultConfig(), correlator.WithMetrics(collector))
//	router.Handle("/metrics", collector.Handler())
//
// # Cardinality
//
// The host label of proxied requests is capped; further hosts are counted
// under "other".
package metrics
