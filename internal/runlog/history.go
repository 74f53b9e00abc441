package runlog

import (
	"sync"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// DefaultHistoryLimit is the number of entries kept for live views
const DefaultHistoryLimit = 100

// History keeps the most recent entries in memory
type History struct {
	limit   int
	entries []domain.LogEntry
	mu      sync.RWMutex
}

// NewHistory creates a history holding at most limit entries
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Write records an entry, evicting the oldest when full
func (h *History) Write(entry domain.LogEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	return nil
}

// Entries returns a snapshot, newest first
func (h *History) Entries() []domain.LogEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.LogEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len returns the number of stored entries
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
