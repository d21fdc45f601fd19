package testsupport

import (
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Extraction.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithExtractionKey sets the extraction API key on the test config.
func WithExtractionKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Extraction.APIKey = key
	}
}

// WithRenderBaseURL points the render client at a test server.
func WithRenderBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Render.BaseURL = url
	}
}

// WithExtractionBaseURL points the extraction client at a test server.
func WithExtractionBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Extraction.BaseURL = url
	}
}
