package config

import "time"

// Config is the root configuration structure for Wiretap.
// It contains the control server, forward proxy, storage, capture, override
// and telemetry sections.
type Config struct {
	// Server contains the control API server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Proxy contains the forward proxy configuration. Requests sent through
	// the proxy are observed and recorded.
	Proxy ProxyConfig `yaml:"proxy"`

	// Storage contains the durable backend configuration for the record log
	// and the recording flag.
	Storage StorageConfig `yaml:"storage"`

	// Capture contains event correlation settings: which requests are
	// recorded, how bodies are kept and how long pending entries live.
	Capture CaptureConfig `yaml:"capture"`

	// Override contains settings for the single header override rule.
	Override OverrideConfig `yaml:"override"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the control API server.
type ServerConfig struct {
	// ListenAddress is the address and port of the control API.
	// Format: "host:port".
	// Default: "127.0.0.1:8787"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown,
	// including draining queued record saves.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration for browser
	// based viewers of the control API.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for the control API.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists origins allowed to call the control API.
	// Use ["*"] to allow any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 600
	MaxAge int `yaml:"max_age"`
}

// ProxyConfig contains configuration for the recording forward proxy.
type ProxyConfig struct {
	// Enabled controls whether the forward proxy listener is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the forward proxy listener.
	// Default: "127.0.0.1:8788"
	ListenAddress string `yaml:"listen_address"`

	// Initiator is reported as the origin of proxied requests that carry
	// neither an Origin nor a Referer header.
	Initiator string `yaml:"initiator"`

	// UpstreamTimeout bounds a single upstream round trip.
	// Default: 60s
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// StorageConfig contains configuration for the durable backend.
type StorageConfig struct {
	// Backend selects the storage implementation.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Capacity is the maximum number of records kept, newest first.
	// Default: 100
	Capacity int `yaml:"capacity"`

	// WriteTimeout bounds a single read-merge-write of the record log.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/wiretap.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// CaptureConfig contains event correlation settings.
type CaptureConfig struct {
	// TrackedTypes are the resource types that are recorded.
	// Default: ["xmlhttprequest", "fetch"]
	TrackedTypes []string `yaml:"tracked_types"`

	// SelfOrigins are initiator origins whose requests are never recorded.
	// The control server origin is always included.
	SelfOrigins []string `yaml:"self_origins"`

	// GraceDelay is how long a finished request stays pending so that late
	// events still merge into it.
	// Default: 5s
	GraceDelay time.Duration `yaml:"grace_delay"`

	// MaxBodyBytes replaces larger request bodies with a truncation marker.
	// Zero disables the limit.
	// Default: 65536
	MaxBodyBytes int `yaml:"max_body_bytes"`

	// SweepSchedule is the cron expression of the stale pending sweep.
	// Default: "@every 1m"
	SweepSchedule string `yaml:"sweep_schedule"`

	// PendingMaxAge is the age after which a request that never completed
	// is dropped from the pending table.
	// Default: 10m
	PendingMaxAge time.Duration `yaml:"pending_max_age"`

	// Watch enables hot reload of the capture section when the
	// configuration file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// OverrideConfig contains settings for the header override rule.
type OverrideConfig struct {
	// RuleID is the fixed id of the override rule in the active rule set.
	// Default: 1
	RuleID int `yaml:"rule_id"`

	// Priority of the override rule.
	// Default: 100
	Priority int `yaml:"priority"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// Redact enables masking of credentials in log output.
	// Default: true
	Redact bool `yaml:"redact"`

	// RedactHeaders lists additional header names whose values are masked.
	// Authorization, Cookie, Set-Cookie, Proxy-Authorization and X-Api-Key
	// are always masked.
	RedactHeaders []string `yaml:"redact_headers"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the Prometheus endpoint on the control server.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "wiretap"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "traffic"
	Subsystem string `yaml:"subsystem"`

	// SaveDurationBuckets defines histogram buckets for record saves (seconds).
	// Default: [0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	SaveDurationBuckets []float64 `yaml:"save_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the trace collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "wiretap"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
