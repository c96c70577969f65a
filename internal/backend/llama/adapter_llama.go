//go:build llama

package llama

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"textgen/internal/textgen"
)

// Generator owns a loaded llama.cpp model. Predictions are serialised
// because a llama context is not safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	model *llama.LLama
	enc   textgen.Encoder
	cfg   Config
}

// New loads the model weights.
func New(cfg Config, enc textgen.Encoder) (*Generator, error) {
	if strings.TrimSpace(cfg.Weights) == "" {
		return nil, errors.New("llama: model weights path is empty")
	}
	mo := []llama.ModelOption{}
	if cfg.Context > 0 {
		mo = append(mo, llama.SetContext(cfg.Context))
	}
	if cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(cfg.GPULayers))
	}
	m, err := llama.New(cfg.Weights, mo...)
	if err != nil {
		return nil, textgen.GenerationError("load "+cfg.Weights, err)
	}
	return &Generator{model: m, enc: enc, cfg: cfg}, nil
}

// Generate implements textgen.Generator. The runtime returns text, which is
// re-encoded so the result lives in the same id space as the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, maxLength int) ([]int, error) {
	promptIDs, err := g.enc.Encode(prompt)
	if err != nil {
		return nil, err
	}
	n := newTokens(maxLength, len(promptIDs))
	if n <= 0 {
		return promptIDs[:max(maxLength, 0)], nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model == nil {
		return nil, errors.New("llama: model closed")
	}
	g.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := g.model.Predict(prompt, predictOptions(g.cfg, n)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, textgen.GenerationError("llama predict", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
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

// Close frees the model.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.model != nil {
		g.model.Free()
		g.model = nil
	}
	return nil
}

// Backend implements textgen.Describer.
func (g *Generator) Backend() string { return "llama" }

// Device implements textgen.Describer.
func (g *Generator) Device() string { return g.cfg.Device() }

func predictOptions(cfg Config, tokens int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(tokens),
		llama.SetThreads(zn(cfg.Threads, 1)),
		llama.SetTopP(zf(cfg.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(cfg.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(cfg.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(cfg.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if cfg.Seed != 0 {
		po = append(po, llama.SetSeed(cfg.Seed))
	}
	return po
}
