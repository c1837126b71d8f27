// Package stream buffers freshly ingested entries per server for
// near-real-time consumers, with an optional NATS mirror.
package stream

import (
	"sync"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/metrics"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

const defaultBufferSize = 500

// Publisher mirrors queued entries to an external bus. Nil publisher means
// buffering only.
type Publisher interface {
	Publish(entry *models.UnifiedLogEntry) error
}

// Manager holds one bounded FIFO buffer per server. Queueing never blocks;
// when a buffer is full the oldest entry is dropped to make room.
type Manager struct {
	mu        sync.Mutex
	buffers   map[string][]*models.UnifiedLogEntry
	size      int
	publisher Publisher
	log       *logging.Logger
}

// NewManager creates a stream manager. size <= 0 selects the default
// capacity.
func NewManager(size int, publisher Publisher, log *logging.Logger) *Manager {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Manager{
		buffers:   make(map[string][]*models.UnifiedLogEntry),
		size:      size,
		publisher: publisher,
		log:       log.Component("stream"),
	}
}

// Queue appends entries to the server's buffer in order, dropping from the
// front on overflow.
func (m *Manager) Queue(server string, entries []*models.UnifiedLogEntry) {
	if len(entries) == 0 {
		return
	}

	m.mu.Lock()
	buf := append(m.buffers[server], entries...)
	if overflow := len(buf) - m.size; overflow > 0 {
		buf = buf[overflow:]
		metrics.StreamDropped.Add(float64(overflow))
	}
	m.buffers[server] = buf
	m.mu.Unlock()

	metrics.StreamQueued.Add(float64(len(entries)))

	if m.publisher != nil {
		for _, e := range entries {
			if err := m.publisher.Publish(e); err != nil {
				m.log.Warn("stream publish failed", "server", server, "error", err)
				break
			}
		}
	}
}

// Drain returns and clears the server's buffered entries in FIFO order.
func (m *Manager) Drain(server string) []*models.UnifiedLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := m.buffers[server]
	if len(buf) == 0 {
		return nil
	}
	delete(m.buffers, server)
	return buf
}

// Peek returns a copy of the server's buffered entries without clearing.
func (m *Manager) Peek(server string) []*models.UnifiedLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := m.buffers[server]
	if len(buf) == 0 {
		return nil
	}
	out := make([]*models.UnifiedLogEntry, len(buf))
	copy(out, buf)
	return out
}

// Len reports the number of entries buffered for one server.
func (m *Manager) Len(server string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers[server])
}

// Servers lists the servers that currently have buffered entries.
func (m *Manager) Servers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	servers := make([]string, 0, len(m.buffers))
	for s := range m.buffers {
		servers = append(servers, s)
	}
	return servers
}
