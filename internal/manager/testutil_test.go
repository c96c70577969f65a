package manager

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"textgen/internal/textgen"
	"textgen/internal/tokenizer"
	"textgen/internal/tokenizer/tokenizertest"
)

// newLoaded returns a ready manager around gen. mk receives the fixture
// tokenizer so echo generators can share it.
func newLoaded(t *testing.T, cfg Config, mk func(tok *tokenizer.BPE) textgen.Generator) *Manager {
	t.Helper()
	tok := tokenizertest.New(t)
	gen := mk(tok)
	cfg.Logger = zerolog.Nop()
	if cfg.Model == "" {
		cfg.Model = "fixture/model"
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	err := m.Load(context.Background(), func(context.Context) (*textgen.Pipeline, error) {
		return textgen.NewPipeline(tok, gen, textgen.Options{Logger: zerolog.Nop()})
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}
