// Package textgentest provides in-memory generators for tests.
package textgentest

import (
	"context"
	"sync"

	"textgen/internal/textgen"
)

// Echo is a Generator that returns the prompt ids followed by the encoding
// of Continuation, truncated to maxLength, like a causal LM would.
type Echo struct {
	Encoder      textgen.Encoder
	Continuation string
	// Err, when set, is returned instead of output.
	Err error
	// Output, when set, is returned verbatim.
	Output []int

	mu      sync.Mutex
	prompts []string
	budgets []int
	closed  bool
}

// Generate implements textgen.Generator.
func (e *Echo) Generate(ctx context.Context, prompt string, maxLength int) ([]int, error) {
	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.budgets = append(e.budgets, maxLength)
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Output != nil {
		return append([]int(nil), e.Output...), nil
	}
	ids, err := e.Encoder.Encode(prompt)
	if err != nil {
		return nil, err
	}
	more, err := textgen.EncodeContinuation(e.Encoder, e.Continuation)
	if err != nil {
		return nil, err
	}
	ids = append(ids, more...)
	if len(ids) > maxLength {
		ids = ids[:maxLength]
	}
	return ids, nil
}

// Close implements textgen.Generator.
func (e *Echo) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// Backend implements textgen.Describer.
func (e *Echo) Backend() string { return "echo" }

// Device implements textgen.Describer.
func (e *Echo) Device() string { return "cpu" }

// Prompts returns the prompts seen so far.
func (e *Echo) Prompts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.prompts...)
}

// Budgets returns the maxLength values seen so far.
func (e *Echo) Budgets() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.budgets...)
}

// Closed reports whether Close was called.
func (e *Echo) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Blocking is a Generator that waits until its context is done or Release
// is closed.
type Blocking struct {
	Release chan struct{}
	Started chan struct{}
	once    sync.Once
}

// NewBlocking returns a Blocking generator with its channels initialised.
func NewBlocking() *Blocking {
	return &Blocking{Release: make(chan struct{}), Started: make(chan struct{}, 16)}
}

// Generate implements textgen.Generator.
func (b *Blocking) Generate(ctx context.Context, prompt string, maxLength int) ([]int, error) {
	b.Started <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.Release:
		return nil, nil
	}
}

// Close implements textgen.Generator.
func (b *Blocking) Close() error {
	b.once.Do(func() { close(b.Release) })
	return nil
}
