// Package backend builds the textgen.Generator selected by configuration.
package backend

import (
	"fmt"
	"strings"

	"textgen/internal/backend/llama"
	"textgen/internal/backend/openai"
	"textgen/internal/textgen"
)

// Backend names accepted in configuration.
const (
	KindLlama  = "llama"
	KindOpenAI = "openai"
)

// Config selects a backend and carries the settings of each kind.
type Config struct {
	Kind   string
	Llama  llama.Config
	OpenAI openai.Config
}

// New constructs the generator for cfg.Kind. enc is the tokenizer used to
// express backend output as token ids.
func New(cfg Config, enc textgen.Encoder) (textgen.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindLlama, "":
		g, err := llama.New(cfg.Llama, enc)
		if err != nil {
			return nil, err
		}
		return g, nil
	case KindOpenAI:
		g, err := openai.New(cfg.OpenAI, enc)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Kind, KindLlama, KindOpenAI)
	}
}
