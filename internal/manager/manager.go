package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"textgen/internal/conversation"
	"textgen/internal/textgen"
)

// Manager holds the pipeline and its lifecycle state.
type Manager struct {
	mu    sync.RWMutex
	state State
	err   string
	pipe  *textgen.Pipeline
	model string

	// Admission
	sem           *semaphore.Weighted // nil when unlimited
	maxConcurrent int
	maxWait       time.Duration
	inflight      atomic.Int64

	generations atomic.Uint64
	convs       *conversation.Store
	log         zerolog.Logger
	startTime   time.Time
	closeOnce   sync.Once
}

// NewWithConfig constructs a Manager in the loading state. The conversation
// store's expiry loop runs until Close.
func NewWithConfig(cfg Config) *Manager {
	m := &Manager{
		state:         StateLoading,
		model:         cfg.Model,
		maxConcurrent: max(cfg.MaxConcurrent, 0),
		log:           cfg.Logger,
		startTime:     time.Now(),
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if m.maxConcurrent > 0 {
		m.sem = semaphore.NewWeighted(int64(m.maxConcurrent))
	}
	ttl := cfg.ConversationTTL
	if ttl <= 0 {
		ttl = defaultConversationTTL
	}
	m.convs = conversation.NewStore(ttl, cfg.ConversationCapacity)
	go m.convs.Start()
	return m
}

// Ready reports whether requests can be served.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.pipe != nil
}

// pipeline returns the loaded pipeline or a notReadyError.
func (m *Manager) pipeline() (*textgen.Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateReady || m.pipe == nil {
		return nil, notReadyError{state: m.state}
	}
	return m.pipe, nil
}

// Close stops the conversation store and releases the generator.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.convs.Stop()
		m.mu.Lock()
		p := m.pipe
		m.pipe = nil
		m.state = StateClosed
		m.mu.Unlock()
		if p != nil {
			err = p.Close()
		}
	})
	return err
}
