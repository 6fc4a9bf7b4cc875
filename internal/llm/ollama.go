package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ollamaProvider calls the native Ollama generate API, which accepts a
// full JSON schema in the format field and constrains decoding to it.
type ollamaProvider struct {
	model       string
	baseURL     string
	temperature float64
	seed        int
	numCtx      int
	client      http.Client
}

type ollamaRequest struct {
	Model  string          `json:"model"`
	System string          `json:"system,omitempty"`
	Prompt string          `json:"prompt"`
	Format json.RawMessage `json:"format,omitempty"`
	Options ollamaOptions  `json:"options"`
	Stream bool            `json:"stream"`
	// Reset model context between requests so one site's text never
	// bleeds into the next extraction.
	KeepAlive int `json:"keep_alive"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *ollamaProvider) Name() string {
	return "ollama/" + o.model
}

func (o *ollamaProvider) Generate(ctx context.Context, system, prompt string, schema json.RawMessage) (string, error) {
	req := ollamaRequest{
		Model:  o.model,
		System: system,
		Prompt: prompt,
		Format: schema,
		Options: ollamaOptions{
			Temperature: o.temperature,
			Seed:        o.seed,
			NumCtx:      o.numCtx,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response JSON: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, parsed.Error)
	}
	return parsed.Response, nil
}
