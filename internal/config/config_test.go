package config

import (
	"os"
	"testing"
)

func TestLoadConfigFromStringAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromString(`
scheduler:
  timeout_seconds: 30
providers:
  anthropic:
    api_key: sk-test
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.MaxFrames != 100 {
		t.Fatalf("expected default max_frames 100, got %d", cfg.Scheduler.MaxFrames)
	}
	p, ok := cfg.Provider("anthropic")
	if !ok {
		t.Fatalf("expected anthropic provider to be present")
	}
	if p.BaseURL != "https://api.anthropic.com" {
		t.Fatalf("expected default base_url, got %q", p.BaseURL)
	}
	if p.DefaultModel == "" {
		t.Fatalf("expected a default model to be set")
	}
}

func TestLoadConfigFromStringExpandsEnvVars(t *testing.T) {
	os.Setenv("SMITHERS_TEST_KEY", "sk-from-env")
	defer os.Unsetenv("SMITHERS_TEST_KEY")

	cfg, err := LoadConfigFromString(`
providers:
  anthropic:
    api_key: ${SMITHERS_TEST_KEY}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := cfg.Provider("anthropic")
	if p.APIKey != "sk-from-env" {
		t.Fatalf("expected expanded env var, got %q", p.APIKey)
	}
}

func TestLoadConfigFromStringDefaultWithDefaultFallback(t *testing.T) {
	cfg, err := LoadConfigFromString(`
providers:
  anthropic:
    api_key: ${SMITHERS_MISSING_KEY:-sk-fallback}
`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := cfg.Provider("anthropic")
	if p.APIKey != "sk-fallback" {
		t.Fatalf("expected fallback value, got %q", p.APIKey)
	}
}

func TestValidateRejectsBadControllerPort(t *testing.T) {
	cfg := Default()
	cfg.Controller.Enabled = true
	cfg.Controller.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for enabled controller with port 0")
	}
}

func TestDefaultCreatesDefaultProvider(t *testing.T) {
	cfg := Default()
	if _, ok := cfg.Provider(""); !ok {
		t.Fatalf("expected zero-config to create a default provider")
	}
}

func TestDefaultPersistenceBackendIsMemory(t *testing.T) {
	cfg := Default()
	if cfg.Persistence.Backend != "memory" {
		t.Fatalf("expected default persistence backend memory, got %q", cfg.Persistence.Backend)
	}
}

func TestValidateRejectsEtcdBackendWithoutEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Persistence.Backend = "etcd"
	cfg.Persistence.Endpoints = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for etcd backend with no endpoints")
	}
}
