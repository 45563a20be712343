package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Opinion.ApiKey = "test-key"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Opinion.BaseURL = ""
	cfg.Opinion.PageSize = 500

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "base_url", "page_size", "api_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateStoreOnlyForRefreshModes(t *testing.T) {
	cfg := Defaults()
	cfg.Opinion.ApiKey = "k"
	cfg.Supabase.Host = ""
	cfg.Supabase.Database = ""

	// Serve mode never touches postgres, so empty connection params pass.
	cfg.Mode = "serve"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("serve mode should not require supabase: %v", err)
	}

	cfg.Mode = "refresh"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "supabase: host") {
		t.Fatalf("refresh mode should require supabase host, got %v", err)
	}
}

func TestLoadTOMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "full"
log_level = "debug"

[opinion]
api_key = "from-toml"
page_size = 25
timeout = "10s"

[pipeline]
refresh_interval = "5m"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPINIOND_OPINION_API_KEY", "from-env")
	t.Setenv("OPINIOND_REDIS_ENABLED", "true")
	t.Setenv("OPINIOND_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "full" {
		t.Errorf("Mode = %q, want full", cfg.Mode)
	}
	if cfg.Opinion.ApiKey != "from-env" {
		t.Errorf("ApiKey = %q, env override should win", cfg.Opinion.ApiKey)
	}
	if cfg.Opinion.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.Opinion.PageSize)
	}
	if cfg.Opinion.Timeout.Duration != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Opinion.Timeout.Duration)
	}
	if cfg.Pipeline.RefreshInterval.Duration != 5*time.Minute {
		t.Errorf("RefreshInterval = %v, want 5m", cfg.Pipeline.RefreshInterval.Duration)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled should be overridden to true")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	// Untouched sections keep their defaults.
	if cfg.Opinion.ChainID != 56 {
		t.Errorf("ChainID = %d, want default 56", cfg.Opinion.ChainID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Opinion.ApiKey = "secret"
	cfg.Supabase.Password = "hunter2"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.ApiKey = ""

	red := RedactedConfig(&cfg)

	if red.Opinion.ApiKey != "***" || red.Supabase.Password != "***" || red.S3.SecretKey != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if red.Server.ApiKey != "" {
		t.Error("empty fields should stay empty")
	}
	if cfg.Opinion.ApiKey != "secret" {
		t.Error("original config must not be mutated")
	}

	red.Server.CORSOrigins[0] = "mutated"
	if cfg.Server.CORSOrigins[0] == "mutated" {
		t.Error("redacted copy shares CORSOrigins slice with original")
	}
}
