// Package conversation keeps dialogue histories for the conversation
// endpoint.
package conversation

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Turn is one user input and the bot response to it.
type Turn struct {
	User string
	Bot  string
}

// Conversation is an id plus its completed turns. Exchanges on the same
// conversation are serialised.
type Conversation struct {
	id string

	mu    sync.Mutex
	turns []Turn
}

func newConversation() *Conversation {
	return &Conversation{id: uuid.NewString()}
}

// ID returns the conversation's uuid.
func (c *Conversation) ID() string { return c.id }

// Turns returns a copy of the completed turns.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.turns...)
}

// Exchange asks respond for a reply to user, given every earlier text in
// order (user, bot, user, bot, ..., user). The turn is recorded only when
// respond succeeds.
func (c *Conversation) Exchange(user string, respond func(texts []string) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	texts := make([]string, 0, 2*len(c.turns)+1)
	for _, t := range c.turns {
		texts = append(texts, t.User, t.Bot)
	}
	texts = append(texts, user)
	bot, err := respond(texts)
	if err != nil {
		return "", err
	}
	c.turns = append(c.turns, Turn{User: user, Bot: bot})
	return bot, nil
}

// String renders the conversation:
//
//	Conversation id: <uuid>
//	user >> <input>
//	bot >> <response>
func (c *Conversation) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	b.WriteString("Conversation id: ")
	b.WriteString(c.id)
	b.WriteByte('\n')
	for _, t := range c.turns {
		b.WriteString("user >> ")
		b.WriteString(t.User)
		b.WriteByte('\n')
		b.WriteString("bot >> ")
		b.WriteString(t.Bot)
		b.WriteByte('\n')
	}
	return b.String()
}

// PromptText joins dialogue texts the way DialoGPT was trained: every text
// is followed by the end-of-sequence token. Without an EOS token a newline
// separates the texts.
func PromptText(texts []string, eos string) string {
	if eos == "" {
		eos = "\n"
	}
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t)
		b.WriteString(eos)
	}
	return b.String()
}
