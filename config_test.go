package casetrack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg.DenseDim != want.DenseDim || cfg.GraphConcurrency != want.GraphConcurrency {
		t.Errorf("LoadConfig on missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
storage_dir = "/tmp/casetrack-data"
dense_dim = 1024
graph_concurrency = 4

[embedding.dense]
provider = "ollama"
model = "mxbai-embed-large"
base_url = "http://localhost:11434"

[watch]
enabled = false
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StorageDir != "/tmp/casetrack-data" {
		t.Errorf("StorageDir = %q, want /tmp/casetrack-data", cfg.StorageDir)
	}
	if cfg.DenseDim != 1024 {
		t.Errorf("DenseDim = %d, want 1024", cfg.DenseDim)
	}
	if cfg.GraphConcurrency != 4 {
		t.Errorf("GraphConcurrency = %d, want 4", cfg.GraphConcurrency)
	}
	if cfg.Embedding.Dense.Model != "mxbai-embed-large" {
		t.Errorf("Embedding.Dense.Model = %q, want mxbai-embed-large", cfg.Embedding.Dense.Model)
	}
	if cfg.Watch.Enabled {
		t.Error("Watch.Enabled = true, want false")
	}
}

func TestLoadConfigMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = valid = toml ["), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig on malformed file: got nil error, want non-nil")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CASETRACK_STORAGE_DIR", "/srv/casetrack")
	t.Setenv("CASETRACK_DENSE_MODEL", "nomic-embed-text-v2")
	t.Setenv("CASETRACK_WATCH_ENABLED", "false")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.StorageDir != "/srv/casetrack" {
		t.Errorf("StorageDir = %q, want /srv/casetrack", cfg.StorageDir)
	}
	if cfg.Embedding.Dense.Model != "nomic-embed-text-v2" {
		t.Errorf("Embedding.Dense.Model = %q, want nomic-embed-text-v2", cfg.Embedding.Dense.Model)
	}
	if cfg.Watch.Enabled {
		t.Error("Watch.Enabled = true, want false after override")
	}
}

func TestResolveStorageDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	cfg := Config{StorageDir: "home"}
	if got, want := cfg.resolveStorageDir(), filepath.Join(home, ".casetrack"); got != want {
		t.Errorf("resolveStorageDir() = %q, want %q", got, want)
	}

	cfg = Config{StorageDir: "local"}
	if got := cfg.resolveStorageDir(); got != ".casetrack" {
		t.Errorf("resolveStorageDir() = %q, want .casetrack", got)
	}

	cfg = Config{StorageDir: "/opt/casetrack"}
	if got := cfg.resolveStorageDir(); got != "/opt/casetrack" {
		t.Errorf("resolveStorageDir() = %q, want /opt/casetrack", got)
	}
}
