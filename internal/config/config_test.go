package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[extraction]
api_key = "test-key"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Render.TimeoutSeconds != 30 {
		t.Fatalf("expected default render timeout, got %d", cfg.Render.TimeoutSeconds)
	}
	if cfg.Workflow.RetryMaxAttempts != 3 {
		t.Fatalf("expected default retry attempts, got %d", cfg.Workflow.RetryMaxAttempts)
	}
	if len(cfg.Quality.Currencies) != 5 {
		t.Fatalf("expected default currency set, got %v", cfg.Quality.Currencies)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadRequiresExtractionKey(t *testing.T) {
	t.Setenv("CURATOR_EXTRACTION_API_KEY", "")
	path := writeConfig(t, "")

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing extraction api key")
	}
	if !strings.Contains(err.Error(), "extraction.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadHonoursEnvFallback(t *testing.T) {
	t.Setenv("CURATOR_EXTRACTION_API_KEY", "env-key")
	path := writeConfig(t, "")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Extraction.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.Extraction.APIKey)
	}
}

func TestLoadNormalizesCurrencies(t *testing.T) {
	path := writeConfig(t, `
[extraction]
api_key = "test-key"

[quality]
currencies = [" eur ", "usd", ""]
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{"EUR", "USD"}
	if len(cfg.Quality.Currencies) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Quality.Currencies)
	}
	for i, currency := range want {
		if cfg.Quality.Currencies[i] != currency {
			t.Fatalf("expected %v, got %v", want, cfg.Quality.Currencies)
		}
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[extraction]
api_key = "test-key"

[logging]
format = "xml"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestValidateRejectsBadRenderURL(t *testing.T) {
	cfg := config.Default()
	cfg.Extraction.APIKey = "key"
	cfg.Render.BaseURL = "ftp://example.com"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http render base url")
	}
}
