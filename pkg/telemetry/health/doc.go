// Package health provides health check endpoints for Wiretap.
//
// # Endpoints
//
//   - /health: liveness, the process is running
//   - /ready: readiness, storage is reachable and the save queue is not backed up
//   - /version: build information
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("storage", health.StorageCheck(backend, store.KeyRecording))
//	checker.RegisterOptionalCheck("save_queue", health.QueueCheck(ser, 1000))
//	checker.Mount(router, cfg.Telemetry.Health, health.VersionInfo{Version: version})
package health
