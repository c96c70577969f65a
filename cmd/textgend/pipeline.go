package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"textgen/internal/backend"
	"textgen/internal/backend/llama"
	"textgen/internal/backend/openai"
	"textgen/internal/config"
	"textgen/internal/modelstore"
	"textgen/internal/textgen"
	"textgen/internal/tokenizer"
)

// loadTokenizer opens the tokenizer stored under the model layout.
func loadTokenizer(cfg config.Config, log zerolog.Logger) (*tokenizer.BPE, modelstore.Layout, error) {
	layout, err := modelstore.NewLayout(cfg.ModelDir, cfg.Model)
	if err != nil {
		return nil, layout, err
	}
	if err := layout.CheckTokenizer(); err != nil {
		return nil, layout, err
	}
	log.Info().Str("dir", layout.TokenizerDir()).Msg("loading tokenizer")
	tok, err := tokenizer.Load(layout.TokenizerDir())
	if err != nil {
		return nil, layout, err
	}
	log.Info().Int("vocab_size", tok.VocabSize()).Str("eos", tok.EOSToken()).Msg("tokenizer loaded")
	return tok, layout, nil
}

// buildPipeline wires tokenizer, backend and pipeline for cfg.
func buildPipeline(ctx context.Context, cfg config.Config, log zerolog.Logger) (*textgen.Pipeline, error) {
	tok, layout, err := loadTokenizer(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bcfg := backend.Config{
		Kind: cfg.Backend,
		OpenAI: openai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			Timeout:     cfg.OpenAI.Timeout.Std(),
		},
	}
	if bcfg.OpenAI.Model == "" {
		bcfg.OpenAI.Model = cfg.Model
	}
	kind := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if kind == "" || kind == backend.KindLlama {
		weights, err := layout.FindWeights(cfg.Llama.Weights)
		if err != nil {
			return nil, err
		}
		bcfg.Llama = llama.Config{
			Weights:       weights,
			Context:       cfg.Llama.Context,
			Threads:       cfg.Llama.Threads,
			GPULayers:     cfg.Llama.GPULayers,
			Temperature:   cfg.Llama.Temperature,
			TopK:          cfg.Llama.TopK,
			TopP:          cfg.Llama.TopP,
			RepeatPenalty: cfg.Llama.RepeatPenalty,
			Seed:          cfg.Llama.Seed,
		}
		log.Info().Str("weights", weights).Str("device", bcfg.Llama.Device()).Msg("loading model")
	}

	gen, err := backend.New(bcfg, tok)
	if err != nil {
		return nil, err
	}
	p, err := textgen.NewPipeline(tok, gen, textgen.Options{
		LengthIncrement: cfg.LengthIncrement,
		Logger:          log,
	})
	if err != nil {
		_ = gen.Close()
		return nil, err
	}
	return p, nil
}
