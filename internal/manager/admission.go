package manager

import (
	"context"
)

// beginGeneration reserves a generation slot, waiting at most maxWait.
// Returns a release func to be deferred.
func (m *Manager) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	if m.sem != nil {
		wctx, cancel := context.WithTimeout(ctx, m.maxWait)
		defer cancel()
		if err := m.sem.Acquire(wctx, 1); err != nil {
			if ctx.Err() != nil {
				return func() {}, ctx.Err()
			}
			return func() {}, tooBusyError{limit: m.maxConcurrent}
		}
	}
	m.inflight.Add(1)
	return func() {
		m.inflight.Add(-1)
		if m.sem != nil {
			m.sem.Release(1)
		}
	}, nil
}
