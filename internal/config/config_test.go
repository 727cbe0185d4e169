package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mnemo/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.Cognitive.Enabled {
		t.Fatal("cognitive subsystem should default to enabled")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg.Cognitive.MaxRetries != config.Default().Cognitive.MaxRetries {
		t.Fatalf("expected default retry budget, got %d", cfg.Cognitive.MaxRetries)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[logging]
level = "debug"

[cognitive]
enabled = false
max_retries = 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cognitive.Enabled {
		t.Fatal("expected cognitive disabled")
	}
	if cfg.Cognitive.MaxRetries != 7 {
		t.Fatalf("max_retries = %d, want 7", cfg.Cognitive.MaxRetries)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data_dir not expanded: %q", cfg.Paths.DataDir)
	}
	if cfg.QueueDir() != filepath.Join(cfg.Paths.DataDir, "queue") {
		t.Fatalf("unexpected queue dir %q", cfg.QueueDir())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad format":    "[logging]\nformat = \"xml\"\n",
		"zero poll":     "[cognitive]\npoll_interval_seconds = 0\n",
		"zero top_k":    "[cognitive]\ntop_k = 0\n",
		"negative cap":  "[cognitive]\nmax_retries = -1\n",
		"empty datadir": "[paths]\ndata_dir = \" \"\n",
	}
	for name, content := range cases {
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected an error for an existing file")
	}

	// The sample itself must parse and validate.
	if _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
