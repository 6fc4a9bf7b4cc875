// Package embed maps chunk text to fixed-dimension vectors via
// OpenAI-compatible /v1/embeddings endpoints (ollama, openai, openrouter,
// deepseek, or a custom URL). The provider must be deterministic for a
// fixed model version so retrieval stays reproducible.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Embedder generates embedding vectors from text. Dimensions reports the
// vector size of the active model, 0 until the first call resolves it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// ClientConfig holds embedding provider configuration.
type ClientConfig struct {
	Provider    string // "ollama", "openai", "deepseek", "openrouter", "custom"
	Model       string
	Endpoint    string
	APIKey      string
	MaxRetries  int // default 3
	TimeoutSecs int // per-request timeout, default 60

	dimensions int // resolved from the first response
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// HTTPError carries the status and Retry-After hint of a failed call.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Client implements Embedder over HTTP.
type Client struct {
	config ClientConfig
	http   *http.Client
}

// ParseProviderFlag parses "provider/model" into a ClientConfig with
// provider-specific endpoint defaults. Model names may contain slashes
// ("openrouter/sentence-transformers/all-MiniLM-L6-v2").
func ParseProviderFlag(flag, endpoint, apiKey string) (*ClientConfig, error) {
	slash := strings.Index(flag, "/")
	if slash <= 0 || slash == len(flag)-1 {
		return nil, fmt.Errorf("invalid embed provider %q: expected provider/model", flag)
	}

	cfg := &ClientConfig{
		Provider:    flag[:slash],
		Model:       flag[slash+1:],
		APIKey:      apiKey,
		MaxRetries:  3,
		TimeoutSecs: 60,
	}

	switch cfg.Provider {
	case "ollama":
		cfg.Endpoint = "http://localhost:11434/v1/embeddings"
	case "openai":
		cfg.Endpoint = "https://api.openai.com/v1/embeddings"
	case "deepseek":
		cfg.Endpoint = "https://api.deepseek.com/v1/embeddings"
	case "openrouter":
		cfg.Endpoint = "https://openrouter.ai/api/v1/embeddings"
	case "custom":
		// Endpoint must come from configuration.
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (supported: ollama, openai, deepseek, openrouter, custom)", cfg.Provider)
	}

	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	return cfg, nil
}

// NewClient validates the config and returns a Client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embed config is required")
	}
	if cfg.Model == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding model and endpoint are required")
	}
	if cfg.Provider != "ollama" && cfg.Provider != "custom" && cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for embedding provider %q", cfg.Provider)
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 60
	}
	return &Client{
		config: *cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		},
	}, nil
}

// Embed generates the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text")
	}
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch generates vectors for multiple texts in one API call,
// retrying with exponential backoff and honoring Retry-After on 429.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		vecs, err := c.attempt(ctx, texts)
		if err == nil {
			for _, v := range vecs {
				if len(v) > 0 {
					c.config.dimensions = len(v)
					break
				}
			}
			return vecs, nil
		}
		lastErr = err

		if attempt == c.config.MaxRetries {
			break
		}
		backoff := time.Duration(1<<attempt) * time.Second
		if httpErr, ok := err.(*HTTPError); ok && httpErr.StatusCode == 429 && httpErr.RetryAfter > 0 {
			backoff = httpErr.RetryAfter
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// Dimensions returns the vector size of the active model, 0 before the
// first successful call.
func (c *Client) Dimensions() int {
	return c.config.dimensions
}

func (c *Client) attempt(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if h := resp.Header.Get("Retry-After"); h != "" {
			if secs, err := strconv.Atoi(h); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody), RetryAfter: retryAfter}
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("invalid embedding index: %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
