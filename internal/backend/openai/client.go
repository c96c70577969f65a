// Package openai generates text through an OpenAI-compatible completions
// endpoint (llama-server, vLLM, Ollama, OpenAI itself).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"textgen/internal/textgen"
)

// DefaultTimeout bounds a single upstream call when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Config selects the upstream and sampling parameters.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Generator calls POST {BaseURL}/completions. The returned text is
// re-encoded so the output shares the prompt's id space.
type Generator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	enc         textgen.Encoder
	client      *http.Client
}

// New validates cfg.
func New(cfg Config, enc textgen.Encoder) (*Generator, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("openai: base_url is required")
	}
	if enc == nil {
		return nil, errors.New("openai: nil encoder")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Generator{
		baseURL:     base,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		enc:         enc,
		client:      client,
	}, nil
}

type completionsRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty"`
}

type completionsResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate implements textgen.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, maxLength int) ([]int, error) {
	promptIDs, err := g.enc.Encode(prompt)
	if err != nil {
		return nil, err
	}
	n := maxLength - len(promptIDs)
	if n <= 0 {
		return promptIDs[:max(maxLength, 0)], nil
	}

	text, err := g.complete(ctx, prompt, n)
	if err != nil {
		return nil, err
	}
	more, err := textgen.EncodeContinuation(g.enc, text)
	if err != nil {
		return nil, err
	}
	out := append(promptIDs, more...)
	if len(out) > maxLength {
		out = out[:maxLength]
	}
	return out, nil
}

func (g *Generator) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	data, err := json.Marshal(completionsRequest{
		Model:       g.model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", textgen.DependencyUnavailable(fmt.Sprintf("completions upstream unreachable: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", textgen.GenerationError("read completions response", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", textgen.DependencyUnavailable(fmt.Sprintf("completions upstream unavailable: %s", strings.TrimSpace(string(body))))
	}
	if resp.StatusCode != http.StatusOK {
		return "", textgen.GenerationError(fmt.Sprintf("completions API status %d", resp.StatusCode), errors.New(strings.TrimSpace(string(body))))
	}

	var result completionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", textgen.GenerationError("parse completions response", err)
	}
	if result.Error != nil {
		return "", textgen.GenerationError("completions API error", errors.New(result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", textgen.GenerationError("no choices in completions response", nil)
	}
	return result.Choices[0].Text, nil
}

// Close implements textgen.Generator.
func (g *Generator) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// Backend implements textgen.Describer.
func (g *Generator) Backend() string { return "openai" }

// Device implements textgen.Describer.
func (g *Generator) Device() string { return "remote" }
