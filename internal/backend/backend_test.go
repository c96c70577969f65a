//go:build !llama

package backend

import (
	"testing"

	"textgen/internal/backend/openai"
	"textgen/internal/textgen"
	"textgen/internal/tokenizer/tokenizertest"
)

func TestNewSelectsBackend(t *testing.T) {
	tok := tokenizertest.New(t)

	g, err := New(Config{Kind: "OpenAI", OpenAI: openai.Config{BaseURL: "http://127.0.0.1:1"}}, tok)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if d, ok := g.(textgen.Describer); !ok || d.Backend() != KindOpenAI {
		t.Fatalf("expected openai generator, got %T", g)
	}

	if _, err := New(Config{Kind: KindLlama}, tok); !textgen.IsDependencyUnavailable(err) {
		t.Fatalf("llama without build tag: expected dependency unavailable, got %v", err)
	}
	if _, err := New(Config{}, tok); !textgen.IsDependencyUnavailable(err) {
		t.Fatalf("default backend is llama: got %v", err)
	}
	if _, err := New(Config{Kind: "torch"}, tok); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
