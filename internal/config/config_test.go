package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != defaultListenAddr {
		t.Fatalf("expected default listen addr, got %s", cfg.ListenAddr)
	}
	if cfg.HealthInterval != defaultHealthInterval {
		t.Fatalf("expected default health interval, got %s", cfg.HealthInterval)
	}
}

func TestLoadRejectsMalformedSeconds(t *testing.T) {
	t.Setenv("REGISTRY_HEALTH_INTERVAL_SECONDS", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed REGISTRY_HEALTH_INTERVAL_SECONDS")
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("REGISTRY_LISTEN_ADDR", ":9999")
	t.Setenv("REGISTRY_HEALTH_INTERVAL_SECONDS", "60")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("expected overridden listen addr, got %s", cfg.ListenAddr)
	}
	if cfg.HealthInterval.Seconds() != 60 {
		t.Fatalf("expected 60s health interval, got %s", cfg.HealthInterval)
	}
}
