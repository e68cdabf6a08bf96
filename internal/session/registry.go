package session

import (
	"sync"
	"time"
)

// Registry keeps one State per browser session and evicts idle ones.
type Registry struct {
	mu      sync.Mutex
	states  map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

type entry struct {
	state    *State
	lastSeen time.Time
}

// NewRegistry creates a registry. A non-positive idleTTL disables eviction.
func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{states: make(map[string]*entry), idleTTL: idleTTL, now: time.Now}
}

// Get returns the state for id, creating it on first use.
func (r *Registry) Get(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.states[id]
	if !ok {
		e = &entry{state: &State{}}
		r.states[id] = e
	}
	e.lastSeen = r.now()
	return e.state
}

// Drop removes the state for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, id)
}

// Evict removes states idle for longer than the TTL and returns their count.
func (r *Registry) Evict() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for id, e := range r.states {
		if e.lastSeen.Before(cutoff) {
			delete(r.states, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
