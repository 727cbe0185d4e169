package testsupport

import (
	"path/filepath"
	"testing"

	"mnemo/internal/config"
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
	cfg.Cognitive.PollIntervalSeconds = 1
	cfg.Cognitive.StaleTimeoutSeconds = 60

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithDisabled turns the cognitive subsystem off on the test config.
func WithDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cognitive.Enabled = false
	}
}

// WithMaxRetries overrides the worker retry budget on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cognitive.MaxRetries = n
	}
}
