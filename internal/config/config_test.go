package config_test

import (
	"testing"

	"github.com/clipforge/clipforge/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.RegionPadding != 5 {
		t.Fatalf("RegionPadding = %v", cfg.RegionPadding)
	}
	if cfg.MockAI {
		t.Fatal("MockAI should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MOCK_AI", "true")
	t.Setenv("REGION_PADDING_SECONDS", "7.5")
	t.Setenv("WORKER_CONCURRENCY", "12")

	cfg := config.Load()
	if cfg.Port != 9090 {
		t.Fatalf("Port = %d", cfg.Port)
	}
	if !cfg.MockAI {
		t.Fatal("MockAI not picked up from env")
	}
	if cfg.RegionPadding != 7.5 {
		t.Fatalf("RegionPadding = %v", cfg.RegionPadding)
	}
	if cfg.Concurrency != 12 {
		t.Fatalf("Concurrency = %d", cfg.Concurrency)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want default on malformed value", cfg.Port)
	}
}
