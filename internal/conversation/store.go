package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ErrNotFound is returned for unknown or expired conversation ids.
var ErrNotFound = errors.New("conversation not found")

// DefaultCapacity bounds the number of live conversations.
const DefaultCapacity = 10000

// Store holds conversations in memory. Entries expire after ttl without
// use; every lookup extends the deadline.
type Store struct {
	cache *ttlcache.Cache[string, *Conversation]
}

// NewStore builds a store. ttl <= 0 keeps conversations until evicted by
// capacity. capacity == 0 means DefaultCapacity.
func NewStore(ttl time.Duration, capacity uint64) *Store {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	opts := []ttlcache.Option[string, *Conversation]{
		ttlcache.WithCapacity[string, *Conversation](capacity),
	}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, *Conversation](ttl))
	}
	return &Store{cache: ttlcache.New(opts...)}
}

// Start runs the expiry loop until Stop. It blocks.
func (s *Store) Start() { s.cache.Start() }

// Stop ends the expiry loop.
func (s *Store) Stop() { s.cache.Stop() }

// Create stores and returns a new empty conversation.
func (s *Store) Create() *Conversation {
	c := newConversation()
	s.cache.Set(c.ID(), c, ttlcache.DefaultTTL)
	return c
}

// Get returns the conversation with id or ErrNotFound.
func (s *Store) Get(id string) (*Conversation, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return item.Value(), nil
}

// Delete drops a conversation.
func (s *Store) Delete(id string) { s.cache.Delete(id) }

// Len reports the number of live conversations.
func (s *Store) Len() int { return s.cache.Len() }
