package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Entry is one active session in a listing.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry maps active session IDs to their display names.
//
// An ID is present exactly while its session holds a concurrency permit.
// Only the Engine that owns the registry mutates it; everything else reads.
type Registry[ID comparable] struct {
	mu      sync.RWMutex
	entries map[ID]string
}

func newRegistry[ID comparable]() *Registry[ID] {
	return &Registry[ID]{entries: make(map[ID]string)}
}

func (r *Registry[ID]) insert(id ID, name string) {
	r.mu.Lock()
	r.entries[id] = name
	r.mu.Unlock()
}

func (r *Registry[ID]) remove(id ID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len returns the number of active sessions.
func (r *Registry[ID]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Contains reports whether id is active.
func (r *Registry[ID]) Contains(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Snapshot returns a copy of the registry. The copy does not track later changes.
func (r *Registry[ID]) Snapshot() map[ID]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ID]string, len(r.entries))
	for id, name := range r.entries {
		out[id] = name
	}
	return out
}

// Names returns the display names of active sessions, sorted.
func (r *Registry[ID]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for _, name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Entries returns a listing of active sessions sorted by name, then ID.
func (r *Registry[ID]) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for id, name := range r.entries {
		out = append(out, Entry{ID: fmt.Sprint(id), Name: name})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
