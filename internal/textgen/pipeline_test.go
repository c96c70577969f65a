package textgen_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"textgen/internal/textgen"
	"textgen/internal/textgen/textgentest"
	"textgen/internal/tokenizer/tokenizertest"
)

func newPipeline(t *testing.T, gen textgen.Generator) *textgen.Pipeline {
	t.Helper()
	p, err := textgen.NewPipeline(tokenizertest.New(t), gen, textgen.Options{Logger: zerolog.New(io.Discard)})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestLengthBudgetEmptyPrompt(t *testing.T) {
	tok := tokenizertest.New(t)
	gen := &textgentest.Echo{Encoder: tok, Continuation: " the end"}
	p := newPipeline(t, gen)
	res, err := p.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Budget != 20 || res.PromptTokens != 0 {
		t.Fatalf("budget=%d prompt_tokens=%d", res.Budget, res.PromptTokens)
	}
	if got := gen.Budgets(); len(got) != 1 || got[0] != 20 {
		t.Fatalf("generator saw budgets %v", got)
	}
	if res.Generated != " the end" {
		t.Fatalf("generated=%q", res.Generated)
	}
}

func TestLengthBudgetCountsPromptTokens(t *testing.T) {
	tok := tokenizertest.New(t)
	gen := &textgentest.Echo{Encoder: tok, Continuation: " field"}
	p := newPipeline(t, gen)
	prompt := "Artificial Intelligence is a"
	ids, _ := tok.Encode(prompt)
	res, err := p.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Budget != 20+len(ids) {
		t.Fatalf("budget=%d want %d", res.Budget, 20+len(ids))
	}
	if p.LengthBudget(len(ids)) != res.Budget {
		t.Fatalf("LengthBudget disagrees with Generate")
	}
}

func TestGenerateTrimsEchoedPrompt(t *testing.T) {
	tok := tokenizertest.New(t)
	prompts := []string{"the", "this is", "Artificial Intelligence is a", "héllo"}
	for _, prompt := range prompts {
		gen := &textgentest.Echo{Encoder: tok, Continuation: " in a"}
		p := newPipeline(t, gen)
		res, err := p.Generate(context.Background(), prompt)
		if err != nil {
			t.Fatalf("generate %q: %v", prompt, err)
		}
		if res.Generated != " in a" {
			t.Fatalf("%q: generated=%q", prompt, res.Generated)
		}
		if strings.HasPrefix(res.Generated, prompt) {
			t.Fatalf("%q: output still carries the prompt", prompt)
		}
		ids, _ := tok.Encode(prompt)
		more, _ := tok.Encode(" in a")
		if res.PromptTokens != len(ids) || res.OutputTokens != len(ids)+len(more) {
			t.Fatalf("%q: tokens prompt=%d output=%d", prompt, res.PromptTokens, res.OutputTokens)
		}
	}
}

func TestGenerateRespectsBudget(t *testing.T) {
	tok := tokenizertest.New(t)
	gen := &textgentest.Echo{Encoder: tok, Continuation: strings.Repeat("x", 50)}
	p := newPipeline(t, gen)
	res, err := p.Generate(context.Background(), "the")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Generated != strings.Repeat("x", 20) {
		t.Fatalf("generated=%q", res.Generated)
	}
}

func TestGenerateShortOutputIsEmpty(t *testing.T) {
	_ = tokenizertest.New(t)
	v := tokenizertest.Vocab()
	gen := &textgentest.Echo{Output: []int{v["t"]}}
	p := newPipeline(t, gen)
	res, err := p.Generate(context.Background(), "this is")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !res.Short || res.Generated != "" {
		t.Fatalf("short=%v generated=%q", res.Short, res.Generated)
	}
}

func TestGenerateSkipsSpecialTokens(t *testing.T) {
	tok := tokenizertest.New(t)
	gen := &textgentest.Echo{Encoder: tok, Continuation: " a" + tokenizertest.EOS}
	p := newPipeline(t, gen)
	res, err := p.Generate(context.Background(), "the")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Generated != " a" {
		t.Fatalf("generated=%q", res.Generated)
	}
}

func TestGenerateErrors(t *testing.T) {
	boom := errors.New("boom")
	p := newPipeline(t, &textgentest.Echo{Err: boom})
	_, err := p.Generate(context.Background(), "the")
	if !textgen.IsGeneration(err) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped generation error, got %v", err)
	}

	p = newPipeline(t, &textgentest.Echo{Err: textgen.DependencyUnavailable("no llama")})
	_, err = p.Generate(context.Background(), "the")
	if !textgen.IsDependencyUnavailable(err) || textgen.IsGeneration(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}

	p = newPipeline(t, &textgentest.Echo{Output: []int{1 << 20}})
	_, err = p.Generate(context.Background(), "")
	if !textgen.IsTokenizer(err) || textgen.IsInvalidPrompt(err) {
		t.Fatalf("expected decode-side tokenizer error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = newPipeline(t, &textgentest.Echo{Encoder: tokenizertest.New(t)})
	if _, err = p.Generate(ctx, "the"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTrimPrompt(t *testing.T) {
	cases := []struct {
		out   []int
		n     int
		want  []int
		short bool
	}{
		{[]int{1, 2, 3}, 1, []int{2, 3}, false},
		{[]int{1, 2, 3}, 3, []int{}, false},
		{[]int{1, 2}, 3, nil, true},
		{nil, 0, nil, false},
		{[]int{1}, -1, []int{1}, false},
	}
	for _, c := range cases {
		got, short := textgen.TrimPrompt(c.out, c.n)
		if short != c.short || len(got) != len(c.want) || (len(got) > 0 && !reflect.DeepEqual(got, c.want)) {
			t.Fatalf("TrimPrompt(%v,%d) = %v,%v want %v,%v", c.out, c.n, got, short, c.want, c.short)
		}
	}
}

func TestNewPipelineValidation(t *testing.T) {
	tok := tokenizertest.New(t)
	gen := &textgentest.Echo{Encoder: tok}
	if _, err := textgen.NewPipeline(nil, gen, textgen.Options{}); err == nil {
		t.Fatalf("expected error for nil tokenizer")
	}
	if _, err := textgen.NewPipeline(tok, nil, textgen.Options{}); err == nil {
		t.Fatalf("expected error for nil generator")
	}
	if _, err := textgen.NewPipeline(tok, gen, textgen.Options{LengthIncrement: -1}); err == nil {
		t.Fatalf("expected error for negative increment")
	}
	p, err := textgen.NewPipeline(tok, gen, textgen.Options{LengthIncrement: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info := p.Info()
	if info.LengthIncrement != 5 || info.Backend != "echo" || info.VocabSize != tok.VocabSize() {
		t.Fatalf("info=%+v", info)
	}
	if err := p.Close(); err != nil || !gen.Closed() {
		t.Fatalf("close: %v closed=%v", err, gen.Closed())
	}
}
