// Package history keeps a bounded in-memory record of recent poll runs.
// It is volatile: reset on restart or explicit clear.
package history

import (
	"sync"
	"time"

	"github.com/haltarr/haltarr/internal/arr"
)

// DefaultCapacity bounds the number of retained run summaries.
const DefaultCapacity = 25

// RunSummary describes one completed poll pass for one service.
type RunSummary struct {
	ID         string      `json:"id"`
	Service    arr.Service `json:"service"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Scanned    int         `json:"scanned"`
	Actioned   int         `json:"actioned"`
	Errored    int         `json:"errored"`
	Skipped    bool        `json:"skipped"`
	Error      string      `json:"error,omitempty"`
}

// History is a capacity-bounded ring of run summaries, newest first.
type History struct {
	mu       sync.RWMutex
	capacity int
	runs     []RunSummary
}

// New creates a history with the given capacity; non-positive values fall
// back to DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Append records a summary, evicting the oldest beyond capacity.
func (h *History) Append(summary RunSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = append([]RunSummary{summary}, h.runs...)
	if len(h.runs) > h.capacity {
		h.runs = h.runs[:h.capacity]
	}
}

// List returns the retained summaries, newest first.
func (h *History) List() []RunSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RunSummary, len(h.runs))
	copy(out, h.runs)
	return out
}

// Last returns the most recent summary for the given service.
func (h *History) Last(service arr.Service) (RunSummary, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, run := range h.runs {
		if run.Service == service {
			return run, true
		}
	}
	return RunSummary{}, false
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = nil
}
