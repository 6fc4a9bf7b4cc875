// Package llm provides the language-model contract for fact extraction:
// prompt plus JSON schema in, raw response text out. The caller owns
// parsing and validation; any malformed response is the caller's
// validation failure, never a crash here. Providers speak the wire
// protocols over net/http directly so any compatible server works.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable reports a transport-level provider failure (connection
// refused, non-2xx status). Retried by the orchestrator up to its bound.
var ErrUnavailable = errors.New("provider unavailable")

// Provider generates schema-constrained completions.
type Provider interface {
	// Generate sends the system+user prompt with schema as an output
	// constraint and returns the raw response text.
	Generate(ctx context.Context, system, prompt string, schema json.RawMessage) (string, error)
	// Name returns "provider/model" for reporting.
	Name() string
}

// Config selects and configures a provider backend.
type Config struct {
	Provider    string  // "ollama", "openrouter", "openai"
	Model       string
	Endpoint    string  // optional URL override
	APIKey      string
	Temperature float64
	Seed        int
	NumCtx      int // ollama context window, 0 = provider default
}

// New creates a Provider from the given config.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		numCtx := cfg.NumCtx
		if numCtx == 0 {
			numCtx = 8192
		}
		return &ollamaProvider{
			model:       cfg.Model,
			baseURL:     strings.TrimRight(endpoint, "/"),
			temperature: cfg.Temperature,
			seed:        cfg.Seed,
			numCtx:      numCtx,
		}, nil

	case "openrouter", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key", cfg.Provider)
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			if cfg.Provider == "openai" {
				endpoint = "https://api.openai.com/v1"
			} else {
				endpoint = "https://openrouter.ai/api/v1"
			}
		}
		return &chatProvider{
			provider:    cfg.Provider,
			model:       cfg.Model,
			baseURL:     strings.TrimRight(endpoint, "/"),
			apiKey:      cfg.APIKey,
			temperature: cfg.Temperature,
		}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: ollama, openrouter, openai)", cfg.Provider)
	}
}

// ParseFlag parses a "provider/model" flag value into a Config.
func ParseFlag(flag string) (Config, error) {
	if flag == "" {
		return Config{Provider: "ollama", Model: "llama3.1"}, nil
	}
	parts := strings.SplitN(flag, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Config{}, fmt.Errorf("invalid llm flag %q: expected provider/model", flag)
	}
	return Config{Provider: strings.ToLower(parts[0]), Model: parts[1]}, nil
}
