package manager

import (
	"time"

	"textgen/pkg/types"
)

// Status builds the response for GET /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:            string(m.state),
		Model:            m.model,
		Inflight:         int(m.inflight.Load()),
		MaxConcurrent:    m.maxConcurrent,
		Conversations:    m.convs.Len(),
		GenerationsTotal: m.generations.Load(),
		LastError:        m.err,
		UptimeSeconds:    int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
	if m.pipe != nil {
		info := m.pipe.Info()
		resp.Backend = info.Backend
		resp.Device = info.Device
		resp.VocabSize = info.VocabSize
		resp.LengthIncrement = info.LengthIncrement
	}
	return resp
}
