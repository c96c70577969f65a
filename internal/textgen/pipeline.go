package textgen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLengthIncrement is the number of tokens the model may add on top
// of the prompt.
const DefaultLengthIncrement = 20

// Result is the outcome of one generation.
type Result struct {
	Input     string
	Generated string
	// PromptTokens is len(encode(Input)).
	PromptTokens int
	// OutputTokens is the length of the sequence the generator returned,
	// echoed prompt included.
	OutputTokens int
	// Budget is the maxLength passed to the generator.
	Budget int
	// Short is set when the generator returned fewer ids than the prompt
	// length; Generated is then empty.
	Short bool
}

// Options tune a Pipeline.
type Options struct {
	LengthIncrement int
	Logger          zerolog.Logger
}

// Info describes a pipeline for status reporting.
type Info struct {
	Backend         string
	Device          string
	VocabSize       int
	LengthIncrement int
}

// Pipeline binds a tokenizer and a generator. It holds no mutable state of
// its own.
type Pipeline struct {
	tok       Tokenizer
	gen       Generator
	increment int
	log       zerolog.Logger
}

// NewPipeline validates its collaborators and returns a ready pipeline.
func NewPipeline(tok Tokenizer, gen Generator, opts Options) (*Pipeline, error) {
	if tok == nil {
		return nil, errors.New("textgen: nil tokenizer")
	}
	if gen == nil {
		return nil, errors.New("textgen: nil generator")
	}
	inc := opts.LengthIncrement
	if inc == 0 {
		inc = DefaultLengthIncrement
	}
	if inc < 0 {
		return nil, fmt.Errorf("textgen: negative length increment %d", inc)
	}
	return &Pipeline{tok: tok, gen: gen, increment: inc, log: opts.Logger}, nil
}

// LengthBudget returns the maxLength for a prompt of promptTokens tokens.
func (p *Pipeline) LengthBudget(promptTokens int) int {
	return p.increment + promptTokens
}

// Tokenizer exposes the bound tokenizer.
func (p *Pipeline) Tokenizer() Tokenizer { return p.tok }

// Info reports backend and tokenizer details.
func (p *Pipeline) Info() Info {
	info := Info{
		Backend:         "unknown",
		Device:          "unknown",
		VocabSize:       p.tok.VocabSize(),
		LengthIncrement: p.increment,
	}
	if d, ok := p.gen.(Describer); ok {
		info.Backend = d.Backend()
		info.Device = d.Device()
	}
	return info
}

// Close releases the generator.
func (p *Pipeline) Close() error { return p.gen.Close() }

// TrimPrompt drops the first n ids of out. When out is shorter than n the
// result is empty and short is true.
func TrimPrompt(out []int, n int) (rest []int, short bool) {
	if n < 0 {
		n = 0
	}
	if len(out) < n {
		return nil, true
	}
	return out[n:], false
}

// Generate runs one prompt through the pipeline.
func (p *Pipeline) Generate(ctx context.Context, input string) (Result, error) {
	promptIDs, err := p.tok.Encode(input)
	if err != nil {
		return Result{}, tokenizerError{op: "encode prompt", input: true, err: err}
	}
	res := Result{
		Input:        input,
		PromptTokens: len(promptIDs),
		Budget:       p.LengthBudget(len(promptIDs)),
	}

	start := time.Now()
	out, err := p.gen.Generate(ctx, input, res.Budget)
	if err != nil {
		generationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if IsDependencyUnavailable(err) || IsGeneration(err) {
			return Result{}, err
		}
		return Result{}, GenerationError("generate", err)
	}
	generationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	res.OutputTokens = len(out)

	rest, short := TrimPrompt(out, len(promptIDs))
	if short {
		res.Short = true
		shortOutputsTotal.Inc()
		p.log.Warn().
			Int("prompt_tokens", len(promptIDs)).
			Int("output_tokens", len(out)).
			Msg("generator returned fewer ids than the prompt; continuation is empty")
	} else if !slices.Equal(out[:len(promptIDs)], promptIDs) {
		p.log.Debug().Int("prompt_tokens", len(promptIDs)).Msg("generator output does not echo the prompt ids")
	}

	text, err := p.tok.Decode(rest, true)
	if err != nil {
		return Result{}, tokenizerError{op: "decode output", err: err}
	}
	res.Generated = text

	tokensTotal.WithLabelValues("prompt").Add(float64(len(promptIDs)))
	tokensTotal.WithLabelValues("generated").Add(float64(len(rest)))
	return res, nil
}
