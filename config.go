package casetrack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/casetrack/casetrack/embedding"
)

// Config holds all configuration for a CaseTrack installation: where
// case data lives on disk, the embedding capabilities every case
// shares, and whether folder watching is enabled.
type Config struct {
	// StorageDir holds registry.db and every case's own case.db. If
	// empty, defaults to ~/.casetrack.
	StorageDir string `toml:"storage_dir"`

	// DenseDim is the dense embedding dimension every case database is
	// opened with; it must match Embedding.Dense's model.
	DenseDim int `toml:"dense_dim"`

	// GraphConcurrency bounds how many goroutines the graph builder may
	// run concurrently during ingestion.
	GraphConcurrency int `toml:"graph_concurrency"`

	// StorageBudgetBytes is the installation-wide storage budget the
	// storage-summary tool warns against at 70% and 90% usage.
	StorageBudgetBytes int64 `toml:"storage_budget_bytes"`

	// Embedding configures the dense, sparse, and token-matrix capability
	// ports shared by every case in this installation.
	Embedding embedding.ManagerConfig `toml:"embedding"`

	// Watch enables folder-watch management (add_watch/remove_watch/
	// sync_watch tools). Disabled installations still accept explicit
	// ingest_document calls; they just can't auto-ingest from a folder.
	Watch WatchConfig `toml:"watch"`
}

// WatchConfig configures whether and where folder watching runs.
type WatchConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults for local
// inference against an Ollama instance on localhost.
func DefaultConfig() Config {
	return Config{
		StorageDir:         "home",
		DenseDim:           768,
		GraphConcurrency:   16,
		StorageBudgetBytes: 10 << 30, // 10 GiB
		Embedding: embedding.ManagerConfig{
			Dense: embedding.Config{
				Provider: "ollama",
				Model:    "nomic-embed-text",
				BaseURL:  "http://localhost:11434",
			},
			EagerLoadThresholdMB: 16384,
		},
		Watch: WatchConfig{Enabled: true},
	}
}

// LoadConfig reads and decodes a TOML config file, per spec §6.1's
// config.toml. A missing file is not an error — DefaultConfig() is
// returned unchanged — but a present, malformed file is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("casetrack: opening config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("casetrack: parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overrides cfg's fields from CASETRACK_* environment
// variables, the same override convention the teacher's cmd/server/
// main.go applies to its own GOREASON_* variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CASETRACK_STORAGE_DIR"); v != "" {
		c.StorageDir = v
	}
	if v := os.Getenv("CASETRACK_DENSE_MODEL"); v != "" {
		c.Embedding.Dense.Model = v
	}
	if v := os.Getenv("CASETRACK_DENSE_BASE_URL"); v != "" {
		c.Embedding.Dense.BaseURL = v
	}
	if v := os.Getenv("CASETRACK_DENSE_API_KEY"); v != "" {
		c.Embedding.Dense.APIKey = v
	}
	if v := os.Getenv("CASETRACK_SPARSE_MODEL"); v != "" {
		c.Embedding.Sparse.Model = v
	}
	if v := os.Getenv("CASETRACK_SPARSE_BASE_URL"); v != "" {
		c.Embedding.Sparse.BaseURL = v
	}
	if v := os.Getenv("CASETRACK_TOKEN_MATRIX_MODEL"); v != "" {
		c.Embedding.TokenMatrix.Model = v
	}
	if v := os.Getenv("CASETRACK_TOKEN_MATRIX_BASE_URL"); v != "" {
		c.Embedding.TokenMatrix.BaseURL = v
	}
	if v := os.Getenv("CASETRACK_WATCH_ENABLED"); v != "" {
		c.Watch.Enabled = v != "false" && v != "0"
	}
}

// resolveStorageDir computes the final on-disk directory from
// StorageDir, mirroring the teacher's resolveDBPath.
func (c *Config) resolveStorageDir() string {
	switch c.StorageDir {
	case "", "home":
		home, err := os.UserHomeDir()
		if err != nil {
			return ".casetrack"
		}
		return filepath.Join(home, ".casetrack")
	case "local", "cwd":
		return ".casetrack"
	default:
		return c.StorageDir
	}
}
