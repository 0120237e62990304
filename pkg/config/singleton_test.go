package config

import (
	"os"
	"sync"
	"testing"
)

func resetGlobal() {
	globalConfig = nil
	configPath = ""
	initOnce = *new(sync.Once)
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:9200"
`)

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9200" {
		t.Errorf("expected listen address %q, got %q", "127.0.0.1:9200", cfg.Server.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobal()
	first := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:9201\"\n")
	second := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:9202\"\n")

	if err := Initialize(first); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	if err := Initialize(second); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}

	if got := GetConfig().Server.ListenAddress; got != "127.0.0.1:9201" {
		t.Errorf("expected first config to win, got %q", got)
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:9203\"\n")

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	if err := os.WriteFile(path, []byte("server:\n  listen_address: \"127.0.0.1:9204\"\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	cfg, err := ReloadConfig()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9204" || GetConfig() != cfg {
		t.Error("expected reloaded config to replace the global instance")
	}

	if err := os.WriteFile(path, []byte("storage:\n  backend: nope\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if _, err := ReloadConfig(); err == nil {
		t.Fatal("expected reload of invalid file to fail")
	}
	if GetConfig() != cfg {
		t.Error("expected failed reload to keep the previous config")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobal()
	defer func() {
		if recover() == nil {
			t.Error("expected panic when config is not initialized")
		}
	}()
	MustGetConfig()
}

func TestSetConfig(t *testing.T) {
	resetGlobal()
	cfg := NewDefault()
	SetConfig(cfg)
	if MustGetConfig() != cfg {
		t.Error("expected SetConfig to replace the global instance")
	}
}
