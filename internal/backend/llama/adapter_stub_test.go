//go:build !llama

package llama

import (
	"context"
	"testing"

	"textgen/internal/textgen"
)

func TestNewWithoutTagIsDependencyUnavailable(t *testing.T) {
	_, err := New(Config{Weights: "/models/x.gguf"}, nil)
	if !textgen.IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	g := &Generator{}
	if _, err := g.Generate(context.Background(), "hi", 10); !textgen.IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable from Generate, got %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	if (Config{}).Device() != "cpu" || (Config{GPULayers: 8}).Device() != "gpu" {
		t.Fatalf("unexpected device mapping")
	}
	if newTokens(25, 5) != 20 {
		t.Fatalf("newTokens")
	}
	if zn(0, 3) != 3 || zn(2, 3) != 2 || zf(0, 0.5) != 0.5 || zf(0.7, 0.5) != 0.7 {
		t.Fatalf("zero-default helpers")
	}
}
