package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithNoConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "INFO" || cfg.Datastore.Format != "xml" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadReadsYAMLFileOverridingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "logging:\n  level: DEBUG\n  format: json\n  output: stderr\ndatastore:\n  dir: /tmp/db\n  format: json\nshutdown_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not overridden: %+v", cfg.Logging)
	}
	if cfg.Datastore.Dir != "/tmp/db" {
		t.Fatalf("datastore dir not overridden: %+v", cfg.Datastore)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("shutdown_timeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for invalid log level")
	}
}

func TestValidateRejectsZeroShutdownTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShutdownTimeout = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for zero shutdown timeout")
	}
}

func TestSaveRoundTripsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Logging.Level = "WARN"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if loaded.Logging.Level != "WARN" {
		t.Fatalf("got %q, want WARN", loaded.Logging.Level)
	}
}
