package manager

import (
	"context"
	"time"

	"textgen/internal/textgen"
)

// Loader builds the pipeline: tokenizer, model and generator.
type Loader func(ctx context.Context) (*textgen.Pipeline, error)

// Load runs load and installs its pipeline. Until it returns, the manager
// reports StateLoading; a failure leaves it in StateError with the message
// kept for /status.
func (m *Manager) Load(ctx context.Context, load Loader) error {
	m.mu.Lock()
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	m.log.Info().Str("model", m.model).Msg("loading model")
	start := time.Now()
	p, err := load(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateError
		m.err = err.Error()
		m.mu.Unlock()
		m.log.Error().Err(err).Str("model", m.model).Msg("model load failed")
		return err
	}

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		_ = p.Close()
		return notReadyError{state: StateClosed}
	}
	m.pipe = p
	m.state = StateReady
	m.mu.Unlock()

	info := p.Info()
	m.log.Info().
		Str("model", m.model).
		Str("backend", info.Backend).
		Str("device", info.Device).
		Int("vocab_size", info.VocabSize).
		Int("length_increment", info.LengthIncrement).
		Dur("took", time.Since(start)).
		Msg("model ready")
	return nil
}

// LoadAsync runs Load in the background. Errors are recorded in the state.
func (m *Manager) LoadAsync(ctx context.Context, load Loader) {
	go func() { _ = m.Load(ctx, load) }()
}
