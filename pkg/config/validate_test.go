package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{
			name:   "empty server address",
			modify: func(c *Config) { c.Server.ListenAddress = "" },
			field:  "server.listen_address",
		},
		{
			name:   "malformed server address",
			modify: func(c *Config) { c.Server.ListenAddress = "localhost" },
			field:  "server.listen_address",
		},
		{
			name:   "negative read timeout",
			modify: func(c *Config) { c.Server.ReadTimeout = -time.Second },
			field:  "server.read_timeout",
		},
		{
			name: "cors without origins",
			modify: func(c *Config) {
				c.Server.CORS.Enabled = true
			},
			field: "server.cors.allowed_origins",
		},
		{
			name:   "proxy shares control address",
			modify: func(c *Config) { c.Proxy.ListenAddress = c.Server.ListenAddress },
			field:  "proxy.listen_address",
		},
		{
			name:   "proxy initiator not a URL origin",
			modify: func(c *Config) { c.Proxy.Initiator = "ftp://example.com" },
			field:  "proxy.initiator",
		},
		{
			name:   "unknown backend",
			modify: func(c *Config) { c.Storage.Backend = "redis" },
			field:  "storage.backend",
		},
		{
			name:   "zero capacity",
			modify: func(c *Config) { c.Storage.Capacity = 0 },
			field:  "storage.capacity",
		},
		{
			name:   "unknown sqlite driver",
			modify: func(c *Config) { c.Storage.SQLite.Driver = "postgres" },
			field:  "storage.sqlite.driver",
		},
		{
			name:   "no tracked types",
			modify: func(c *Config) { c.Capture.TrackedTypes = nil },
			field:  "capture.tracked_types",
		},
		{
			name:   "bad self origin",
			modify: func(c *Config) { c.Capture.SelfOrigins = []string{"not a url"} },
			field:  "capture.self_origins[0]",
		},
		{
			name:   "bad sweep schedule",
			modify: func(c *Config) { c.Capture.SweepSchedule = "often" },
			field:  "capture.sweep_schedule",
		},
		{
			name:   "pending max age below grace delay",
			modify: func(c *Config) { c.Capture.PendingMaxAge = time.Second },
			field:  "capture.pending_max_age",
		},
		{
			name:   "zero override rule id",
			modify: func(c *Config) { c.Override.RuleID = 0 },
			field:  "override.rule_id",
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			field:  "telemetry.logging.level",
		},
		{
			name:   "tracing without endpoint",
			modify: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name:   "sample ratio out of range",
			modify: func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			field:  "telemetry.tracing.sample_ratio",
		},
		{
			name:   "relative readiness path",
			modify: func(c *Config) { c.Telemetry.Health.ReadinessPath = "ready" },
			field:  "telemetry.health.readiness_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestValidate_ProxyDisabledSkipsChecks(t *testing.T) {
	cfg := NewDefault()
	cfg.Proxy.Enabled = false
	cfg.Proxy.ListenAddress = cfg.Server.ListenAddress

	if err := Validate(cfg); err != nil {
		t.Errorf("expected disabled proxy to skip validation, got %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message: %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}}
	msg := multi.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "  - b: worse") {
		t.Errorf("unexpected multi error message: %q", msg)
	}
}

func TestOriginOf(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "http://localhost:3000/app?x=1", want: "http://localhost:3000"},
		{raw: "https://example.com", want: "https://example.com"},
		{raw: "chrome-extension://abc", wantErr: true},
		{raw: "https://", wantErr: true},
		{raw: "%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := OriginOf(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
