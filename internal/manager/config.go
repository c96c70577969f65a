package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxWait         = 30 * time.Second
	defaultConversationTTL = 30 * time.Minute
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Model is the served model id, reported in status.
	Model string
	// MaxConcurrent bounds simultaneous generations; 0 disables the limit.
	MaxConcurrent int
	// MaxWait is how long a request may wait for a generation slot before
	// it is rejected as too busy.
	MaxWait time.Duration
	// ConversationTTL is the idle lifetime of a stored conversation.
	ConversationTTL time.Duration
	// ConversationCapacity bounds live conversations (0 = package default).
	ConversationCapacity uint64
	Logger               zerolog.Logger
}
