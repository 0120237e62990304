// Package config provides configuration management for Wiretap.
//
// Configuration is read from a YAML file, decoded on top of the defaults in
// defaults.go, overridden by environment variables and validated as a whole.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("wiretap.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("wiretap.yaml")
//
// LoadConfigWithEnvOverrides accepts an empty path, in which case only
// defaults and environment variables apply.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention WIRETAP_SECTION_FIELD:
//
//   - WIRETAP_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - WIRETAP_STORAGE_SQLITE_PATH overrides storage.sqlite.path
//   - WIRETAP_CAPTURE_TRACKED_TYPES overrides capture.tracked_types (comma separated)
//
// # Validation
//
// Validation errors carry the dotted field path:
//
//	configuration validation failed with 2 errors:
//	  - storage.backend: invalid backend "redis": must be 'memory' or 'sqlite'
//	  - capture.sweep_schedule: invalid cron expression "often": ...
//
// # Hot Reload
//
// When capture.watch is set, a Watcher observes the configuration file and
// hands each valid new Config to a callback. Only the capture section is
// applied at runtime; everything else requires a restart.
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8787"
//
//	proxy:
//	  listen_address: "127.0.0.1:8788"
//
//	storage:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/wiretap.db"
//
//	capture:
//	  tracked_types: ["xmlhttprequest", "fetch"]
//	  grace_delay: 5s
package config
