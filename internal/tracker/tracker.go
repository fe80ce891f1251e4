// Package tracker keeps the in-memory set of already-actioned item
// identities. It is an optimization that prevents redundant remote calls
// while the remote is slow to reflect a change; the durable change log is
// the source of truth.
package tracker

import (
	"sync"

	"github.com/haltarr/haltarr/internal/arr"
	"github.com/haltarr/haltarr/internal/changelog"
)

// Tracker is a concurrency-safe set of (service, item key) pairs.
type Tracker struct {
	mu       sync.RWMutex
	actioned map[string]struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{actioned: make(map[string]struct{})}
}

// NewFromLog creates a tracker seeded from the durable change log, so
// at-most-once bookkeeping survives process restarts.
func NewFromLog(store *changelog.Store) (*Tracker, error) {
	entries, err := store.All()
	if err != nil {
		return nil, err
	}

	t := New()
	for _, entry := range entries {
		t.actioned[key(entry.Service, entry.ItemKey)] = struct{}{}
	}
	return t, nil
}

// ShouldAct reports whether the item has not yet been actioned.
func (t *Tracker) ShouldAct(service arr.Service, itemKey string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, done := t.actioned[key(service, itemKey)]
	return !done
}

// RecordActed marks the item as actioned for the process lifetime.
func (t *Tracker) RecordActed(service arr.Service, itemKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actioned[key(service, itemKey)] = struct{}{}
}

// Reset empties the set. Called when the change log is cleared so the two
// stay consistent; previously actioned items are already unmonitored on
// the remote, which keeps them out of reach of the matcher regardless.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actioned = make(map[string]struct{})
}

// Len returns the number of tracked identities.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actioned)
}

func key(service arr.Service, itemKey string) string {
	return string(service) + "|" + itemKey
}
