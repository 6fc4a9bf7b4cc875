package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Chunk.Size != DefaultChunkSize {
		t.Errorf("chunk size = %d, want %d", cfg.Chunk.Size, DefaultChunkSize)
	}
	if cfg.Chunk.Overlap != DefaultChunkOverlap {
		t.Errorf("chunk overlap = %d, want %d", cfg.Chunk.Overlap, DefaultChunkOverlap)
	}
	if cfg.Retrieve.BoostWeight != DefaultBoostWeight {
		t.Errorf("boost weight = %v", cfg.Retrieve.BoostWeight)
	}
	if cfg.Extract.RetryAttempts != DefaultRetryAttempts {
		t.Errorf("retry attempts = %d", cfg.Extract.RetryAttempts)
	}
	if cfg.Extract.Seed != DefaultSeed {
		t.Errorf("seed = %d, want %d", cfg.Extract.Seed, DefaultSeed)
	}
	if cfg.DBPath == "" || strings.HasPrefix(cfg.DBPath, "~") {
		t.Errorf("db path %q not expanded", cfg.DBPath)
	}
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
db_path: /tmp/test.db
chunk:
  size: 500
  overlap: 50
retrieve:
  boost_weight: 0.5
llm:
  provider: ollama/llama3.1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Chunk.Size != 500 || cfg.Chunk.Overlap != 50 {
		t.Errorf("chunk = %d/%d", cfg.Chunk.Size, cfg.Chunk.Overlap)
	}
	if cfg.Retrieve.BoostWeight != 0.5 {
		t.Errorf("boost weight = %v", cfg.Retrieve.BoostWeight)
	}
	if cfg.LLM.Provider != "ollama/llama3.1" {
		t.Errorf("llm provider = %q", cfg.LLM.Provider)
	}
}

func TestResolveExplicitZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieve:
  boost_weight: 0
extract:
  seed: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(Options{ConfigPath: path})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Retrieve.BoostWeight != 0 {
		t.Errorf("boost weight = %v, want explicit 0 honored", cfg.Retrieve.BoostWeight)
	}
	if cfg.Extract.Seed != 0 {
		t.Errorf("seed = %d, want explicit 0 honored", cfg.Extract.Seed)
	}
	// Keys absent from the file still get defaults.
	if cfg.Extract.RetryAttempts != DefaultRetryAttempts {
		t.Errorf("retry attempts = %d", cfg.Extract.RetryAttempts)
	}
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: /tmp/from-file.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DISTILL_DB", "/tmp/from-env.db")
	cfg, err := Resolve(Options{ConfigPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/from-env.db" {
		t.Errorf("env should override file, got %q", cfg.DBPath)
	}

	cfg, err = Resolve(Options{ConfigPath: path, DBPath: "/tmp/from-flag.db"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/from-flag.db" {
		t.Errorf("flag should override env, got %q", cfg.DBPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }},
		{"overlap exceeds size", func(c *Config) { c.Chunk.Overlap = c.Chunk.Size + 1 }},
		{"negative boost weight", func(c *Config) { c.Retrieve.BoostWeight = -0.1 }},
		{"zero retries", func(c *Config) { c.Extract.RetryAttempts = -1 }},
		{"temperature out of range", func(c *Config) { c.Extract.Temperature = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("error %v is not ErrInvalidConfiguration", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestResolveRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("chunk:\n  size: 100\n  overlap: 100\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Resolve(Options{ConfigPath: path})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}
