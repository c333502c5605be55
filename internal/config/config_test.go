package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected default worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.DefaultCredits != 20 {
		t.Errorf("expected default starting credits 20, got %d", cfg.DefaultCredits)
	}
	if cfg.CreditsPerReply != 1 {
		t.Errorf("expected flat credit cost 1, got %d", cfg.CreditsPerReply)
	}
	if cfg.HistoryTTL != 24*time.Hour {
		t.Errorf("expected default history TTL 24h, got %s", cfg.HistoryTTL)
	}
	if cfg.OpenAIChatModel == "" || cfg.OpenAIImageModel == "" {
		t.Error("expected model defaults to be populated")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("ROUTER_DEBUG", "true")
	t.Setenv("HISTORY_CACHE_TTL", "1h")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("expected worker count 8, got %d", cfg.WorkerCount)
	}
	if !cfg.RouterDebug {
		t.Error("expected debug mode enabled")
	}
	if cfg.HistoryTTL != time.Hour {
		t.Errorf("expected history TTL 1h, got %s", cfg.HistoryTTL)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("REDIS_TLS", "maybe")

	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Errorf("expected fallback worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.RedisTLS {
		t.Error("expected fallback RedisTLS=false")
	}
}
