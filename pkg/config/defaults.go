package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8787"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultCORSMaxAge      = 600

	// Proxy defaults
	DefaultProxyEnabled         = true
	DefaultProxyListenAddress   = "127.0.0.1:8788"
	DefaultProxyUpstreamTimeout = 60 * time.Second

	// Storage defaults
	DefaultStorageBackend      = "sqlite"
	DefaultStorageCapacity     = 100
	DefaultStorageWriteTimeout = 5 * time.Second
	DefaultSQLitePath          = "data/wiretap.db"
	DefaultSQLiteDriver        = "sqlite3"
	DefaultSQLiteMaxOpenConns  = 4
	DefaultSQLiteWALMode       = true
	DefaultSQLiteBusyTimeout   = 5 * time.Second

	// Capture defaults
	DefaultCaptureGraceDelay    = 5 * time.Second
	DefaultCaptureMaxBodyBytes  = 64 * 1024
	DefaultCaptureSweepSchedule = "@every 1m"
	DefaultCapturePendingMaxAge = 10 * time.Minute

	// Override defaults
	DefaultOverrideRuleID   = 1
	DefaultOverridePriority = 100

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultLoggingRedact       = true
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "wiretap"
	DefaultMetricsSubsystem    = "traffic"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSampleRatio  = 0.1
	DefaultTracingExporter     = "otlp"
	DefaultTracingServiceName  = "wiretap"
	DefaultTracingOTLPInsecure = true
	DefaultTracingOTLPTimeout  = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthVersionPath   = "/version"
	DefaultHealthCheckTimeout  = 2 * time.Second
)

// DefaultTrackedTypes are the resource types recorded by default.
var DefaultTrackedTypes = []string{"xmlhttprequest", "fetch"}

// DefaultSaveDurationBuckets are the default save latency buckets (seconds).
var DefaultSaveDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// NewDefault returns a configuration with every field set to its default.
// LoadConfig decodes YAML on top of it, so boolean defaults survive keys
// that are absent from the file.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Proxy.Enabled = DefaultProxyEnabled
	cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.Redact = DefaultLoggingRedact
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultTracingOTLPInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultProxyListenAddress
	}
	if cfg.Proxy.UpstreamTimeout == 0 {
		cfg.Proxy.UpstreamTimeout = DefaultProxyUpstreamTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Capacity == 0 {
		cfg.Storage.Capacity = DefaultStorageCapacity
	}
	if cfg.Storage.WriteTimeout == 0 {
		cfg.Storage.WriteTimeout = DefaultStorageWriteTimeout
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.Driver == "" {
		cfg.Storage.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	applyCaptureDefaults(cfg)

	// Override defaults
	if cfg.Override.RuleID == 0 {
		cfg.Override.RuleID = DefaultOverrideRuleID
	}
	if cfg.Override.Priority == 0 {
		cfg.Override.Priority = DefaultOverridePriority
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.SaveDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.SaveDurationBuckets = append([]float64(nil), DefaultSaveDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultHealthVersionPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// applyCaptureDefaults applies defaults to the capture section.
func applyCaptureDefaults(cfg *Config) {
	if len(cfg.Capture.TrackedTypes) == 0 {
		cfg.Capture.TrackedTypes = append([]string(nil), DefaultTrackedTypes...)
	}
	if cfg.Capture.GraceDelay == 0 {
		cfg.Capture.GraceDelay = DefaultCaptureGraceDelay
	}
	if cfg.Capture.MaxBodyBytes == 0 {
		cfg.Capture.MaxBodyBytes = DefaultCaptureMaxBodyBytes
	}
	if cfg.Capture.SweepSchedule == "" {
		cfg.Capture.SweepSchedule = DefaultCaptureSweepSchedule
	}
	if cfg.Capture.PendingMaxAge == 0 {
		cfg.Capture.PendingMaxAge = DefaultCapturePendingMaxAge
	}
}
