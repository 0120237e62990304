package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProxy(&cfg.Proxy, &cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, ValidateCapture(&cfg.Capture)...)
	errs = append(errs, validateOverride(&cfg.Override)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates control server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateAddress("server.listen_address", cfg.ListenAddress)...)

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.CORS.Enabled && len(cfg.CORS.AllowedOrigins) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.allowed_origins",
			Message: "at least one origin is required when CORS is enabled",
		})
	}

	return errs
}

// validateProxy validates forward proxy configuration.
func validateProxy(cfg *ProxyConfig, server *ServerConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	errs = append(errs, validateAddress("proxy.listen_address", cfg.ListenAddress)...)
	if cfg.ListenAddress != "" && cfg.ListenAddress == server.ListenAddress {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "proxy and control server cannot share a listen address",
		})
	}

	if cfg.Initiator != "" {
		if _, err := OriginOf(cfg.Initiator); err != nil {
			errs = append(errs, FieldError{
				Field:   "proxy.initiator",
				Message: err.Error(),
			})
		}
	}

	if cfg.UpstreamTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.upstream_timeout",
			Message: "upstream timeout must be positive",
		})
	}

	return errs
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Capacity < 1 {
		errs = append(errs, FieldError{
			Field:   "storage.capacity",
			Message: "capacity must be at least 1",
		})
	}
	if cfg.Capacity > 10000 {
		errs = append(errs, FieldError{
			Field:   "storage.capacity",
			Message: "capacity exceeds reasonable limit (10000)",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
		if !validDrivers[cfg.SQLite.Driver] {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
	}

	return errs
}

// ValidateCapture validates the capture section. It is exported so that a
// hot reload can check a new capture section without the rest of the file.
func ValidateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	if len(cfg.TrackedTypes) == 0 {
		errs = append(errs, FieldError{
			Field:   "capture.tracked_types",
			Message: "at least one resource type must be tracked",
		})
	}
	for i, typ := range cfg.TrackedTypes {
		if strings.TrimSpace(typ) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.tracked_types[%d]", i),
				Message: "resource type cannot be empty",
			})
		}
	}

	for i, origin := range cfg.SelfOrigins {
		if _, err := OriginOf(origin); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.self_origins[%d]", i),
				Message: err.Error(),
			})
		}
	}

	if cfg.GraceDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.grace_delay",
			Message: "grace delay must be positive",
		})
	}
	if cfg.GraceDelay > 5*time.Minute {
		errs = append(errs, FieldError{
			Field:   "capture.grace_delay",
			Message: "grace delay exceeds reasonable limit (5m)",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "capture.sweep_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.SweepSchedule, err),
		})
	}
	if cfg.PendingMaxAge <= cfg.GraceDelay {
		errs = append(errs, FieldError{
			Field:   "capture.pending_max_age",
			Message: "pending max age must exceed the grace delay",
		})
	}

	return errs
}

// validateOverride validates override configuration.
func validateOverride(cfg *OverrideConfig) []FieldError {
	var errs []FieldError

	if cfg.RuleID < 1 {
		errs = append(errs, FieldError{
			Field:   "override.rule_id",
			Message: "rule id must be at least 1",
		})
	}
	if cfg.Priority < 1 {
		errs = append(errs, FieldError{
			Field:   "override.priority",
			Message: "priority must be at least 1",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled {
		paths := map[string]string{
			"telemetry.health.liveness_path":  cfg.Health.LivenessPath,
			"telemetry.health.readiness_path": cfg.Health.ReadinessPath,
			"telemetry.health.version_path":   cfg.Health.VersionPath,
		}
		for _, field := range []string{"telemetry.health.liveness_path", "telemetry.health.readiness_path", "telemetry.health.version_path"} {
			if !strings.HasPrefix(paths[field], "/") {
				errs = append(errs, FieldError{
					Field:   field,
					Message: "path must start with /",
				})
			}
		}
		if cfg.Health.CheckTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout exceeds reasonable limit (60s)",
			})
		}
	}

	return errs
}

func validateAddress(field, addr string) []FieldError {
	if addr == "" {
		return []FieldError{{Field: field, Message: "listen address is required"}}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid address %q: %v", addr, err)}}
	}
	return nil
}

// OriginOf returns the scheme://host[:port] origin of raw. It fails when raw
// is not an absolute http or https URL.
func OriginOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("origin %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q has no host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
