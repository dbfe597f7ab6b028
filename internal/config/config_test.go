package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Expected memory backend, got %q", cfg.Storage.Backend)
	}
	if cfg.App.DefaultTolerance != 0.1 {
		t.Errorf("Expected default tolerance 0.1, got %v", cfg.App.DefaultTolerance)
	}
	if cfg.Client.Timeout != 15*time.Second {
		t.Errorf("Expected 15s client timeout, got %v", cfg.Client.Timeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "POSTGRES")
	t.Setenv("APP_DEFAULT_TOLERANCE", "0.05")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Backend != "postgres" || cfg.App.DefaultTolerance != 0.05 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	if _, err := Load(); err == nil {
		t.Errorf("Expected error for unknown backend")
	}
}
