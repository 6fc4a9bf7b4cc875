// Package config builds the single configuration value used by the
// extraction pipeline. Values are resolved once at process start with
// precedence CLI flag > environment variable > config file > default;
// nothing in the core packages reads the environment after that.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration reports configuration that can never produce a
// valid pipeline (e.g. chunk overlap >= chunk size). Fatal before any I/O.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Defaults recovered from the operator-tunable settings.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100

	DefaultBoostWeight   = 0.3
	DefaultRetryAttempts = 3
	DefaultCallTimeoutS  = 120
	DefaultConcurrency   = 4
	DefaultSeed          = 42

	DefaultDBPath = "~/.distill/distill.db"
)

// Config is the explicit configuration value passed into each component.
type Config struct {
	DBPath string `yaml:"db_path"`

	Chunk struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunk"`

	Retrieve struct {
		BoostWeight float64 `yaml:"boost_weight"`
	} `yaml:"retrieve"`

	Extract struct {
		RetryAttempts int     `yaml:"retry_attempts"`
		CallTimeoutS  int     `yaml:"call_timeout_seconds"`
		Concurrency   int     `yaml:"concurrency"`
		Temperature   float64 `yaml:"temperature"`
		Seed          int     `yaml:"seed"`
	} `yaml:"extract"`

	Embed struct {
		Provider string `yaml:"provider"` // "provider/model"
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"embed"`

	LLM struct {
		Provider string `yaml:"provider"` // "provider/model"
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"llm"`
}

// Options carries CLI-level overrides into Resolve.
type Options struct {
	ConfigPath string
	DBPath     string
	Embed      string
	LLM        string
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".distill", "config.yaml")
}

// Resolve loads the config file (if present), applies environment and CLI
// overrides, fills defaults, and validates. A missing file is not an error.
func Resolve(opts Options) (*Config, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	// Start from defaults and let the file overwrite them, so an explicit
	// zero in the file (boost_weight: 0, seed: 0) is honored rather than
	// mistaken for "unset".
	cfg := Default()
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnvString(&cfg.DBPath, "DISTILL_DB")
	applyEnvString(&cfg.Embed.Provider, "DISTILL_EMBED")
	applyEnvString(&cfg.Embed.Endpoint, "DISTILL_EMBED_ENDPOINT")
	applyEnvString(&cfg.Embed.APIKey, "DISTILL_EMBED_API_KEY")
	applyEnvString(&cfg.LLM.Provider, "DISTILL_LLM")
	applyEnvString(&cfg.LLM.Endpoint, "DISTILL_LLM_ENDPOINT")
	applyEnvString(&cfg.LLM.APIKey, "DISTILL_LLM_API_KEY")
	applyEnvInt(&cfg.Chunk.Size, "DISTILL_CHUNK_SIZE")
	applyEnvInt(&cfg.Chunk.Overlap, "DISTILL_CHUNK_OVERLAP")

	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Embed != "" {
		cfg.Embed.Provider = opts.Embed
	}
	if opts.LLM != "" {
		cfg.LLM.Provider = opts.LLM
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.DBPath = expandPath(cfg.DBPath)
	return cfg, nil
}

// Default returns the configuration used when no file, environment, or
// flag says otherwise.
func Default() *Config {
	c := &Config{DBPath: DefaultDBPath}
	c.Chunk.Size = DefaultChunkSize
	c.Chunk.Overlap = DefaultChunkOverlap
	c.Retrieve.BoostWeight = DefaultBoostWeight
	c.Extract.RetryAttempts = DefaultRetryAttempts
	c.Extract.CallTimeoutS = DefaultCallTimeoutS
	c.Extract.Concurrency = DefaultConcurrency
	c.Extract.Seed = DefaultSeed
	return c
}

// Validate fails fast on configuration the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Chunk.Size <= 0 {
		problems = append(problems, "chunk size must be positive")
	}
	if c.Chunk.Overlap <= 0 {
		problems = append(problems, "chunk overlap must be positive")
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		problems = append(problems, "chunk overlap must be less than chunk size")
	}
	if c.Retrieve.BoostWeight < 0 {
		problems = append(problems, "boost weight cannot be negative")
	}
	if c.Extract.RetryAttempts < 1 {
		problems = append(problems, "retry attempts must be at least 1")
	}
	if c.Extract.CallTimeoutS <= 0 {
		problems = append(problems, "call timeout must be positive")
	}
	if c.Extract.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if c.Extract.Temperature < 0 || c.Extract.Temperature > 2 {
		problems = append(problems, "temperature must be between 0 and 2")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func applyEnvString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyEnvInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
