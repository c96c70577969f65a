//go:build !llama

package llama

import (
	"context"

	"textgen/internal/textgen"
)

const notBuilt = "llama support not built (missing 'llama' build tag)"

// Generator is the no-cgo stand-in for the llama.cpp runtime.
type Generator struct {
	cfg Config
}

// New fails fast: the llama runtime is not part of this build.
func New(cfg Config, enc textgen.Encoder) (*Generator, error) {
	return nil, textgen.DependencyUnavailable(notBuilt)
}

// Generate implements textgen.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, maxLength int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, textgen.DependencyUnavailable(notBuilt)
}

// Close implements textgen.Generator.
func (g *Generator) Close() error { return nil }

// Backend implements textgen.Describer.
func (g *Generator) Backend() string { return "llama" }

// Device implements textgen.Describer.
func (g *Generator) Device() string { return g.cfg.Device() }
