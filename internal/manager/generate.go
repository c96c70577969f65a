package manager

import (
	"context"
	"strings"

	"textgen/internal/conversation"
	"textgen/internal/textgen"
)

// Generate continues text with the loaded pipeline.
func (m *Manager) Generate(ctx context.Context, text string) (textgen.Result, error) {
	p, err := m.pipeline()
	if err != nil {
		return textgen.Result{}, err
	}
	return m.generate(ctx, p, text)
}

func (m *Manager) generate(ctx context.Context, p *textgen.Pipeline, text string) (textgen.Result, error) {
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return textgen.Result{}, err
	}
	defer release()
	res, err := p.Generate(ctx, text)
	if err != nil {
		m.recordError(err)
		return textgen.Result{}, err
	}
	m.generations.Add(1)
	return res, nil
}

// Converse adds one exchange to a conversation. An empty id starts a new
// conversation; an unknown id is a conversation-not-found error.
func (m *Manager) Converse(ctx context.Context, id, text string) (*conversation.Conversation, error) {
	p, err := m.pipeline()
	if err != nil {
		return nil, err
	}
	var conv *conversation.Conversation
	created := false
	if id == "" {
		conv = m.convs.Create()
		created = true
	} else if conv, err = m.convs.Get(id); err != nil {
		return nil, conversationNotFoundError{id: id}
	}

	eos := p.Tokenizer().EOSToken()
	_, err = conv.Exchange(text, func(texts []string) (string, error) {
		res, err := m.generate(ctx, p, conversation.PromptText(texts, eos))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(res.Generated), nil
	})
	if err != nil {
		if created {
			m.convs.Delete(conv.ID())
		}
		return nil, err
	}
	return conv, nil
}

// recordError keeps the latest backend failure for /status. Caller
// cancellations and backpressure are not failures of the service.
func (m *Manager) recordError(err error) {
	if !textgen.IsGeneration(err) && !textgen.IsDependencyUnavailable(err) {
		return
	}
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
	m.log.Warn().Err(err).Msg("generation failed")
}
