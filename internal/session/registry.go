package session

import (
	"fmt"
	"sync"
	"time"
)

// DefaultMaxSessions bounds how many per-target sessions a registry
// retains before evicting the least recently used.
const DefaultMaxSessions = 64

// Key identifies one tail target.
type Key struct {
	Factory  string
	System   string
	Alias    string
	Category string
	Object   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.Factory, k.System, k.Alias, k.Category, k.Object)
}

type registryEntry struct {
	session    *Session
	lastAccess time.Time
}

// Registry keeps one session per tail target, evicting idle ones so a
// long-running process browsing many objects stays bounded.
type Registry struct {
	mu      sync.Mutex
	max     int
	entries map[string]*registryEntry
}

// NewRegistry builds a registry; max <= 0 uses DefaultMaxSessions.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Registry{max: max, entries: make(map[string]*registryEntry)}
}

// Get returns the session for a key, creating it with build on first use.
// Access refreshes the key's eviction clock. Evicted sessions are stopped
// after the lock is released: Stop waits for an in-flight poll, and that
// wait must not stall other registry callers.
func (r *Registry) Get(key Key, build func() *Session) *Session {
	r.mu.Lock()
	id := key.String()
	if entry, ok := r.entries[id]; ok {
		entry.lastAccess = time.Now()
		r.mu.Unlock()
		return entry.session
	}
	sess := build()
	r.entries[id] = &registryEntry{session: sess, lastAccess: time.Now()}
	evicted := r.evictLocked()
	r.mu.Unlock()

	for _, old := range evicted {
		old.Stop()
	}
	return sess
}

// Remove forgets one session and stops it outside the lock.
func (r *Registry) Remove(key Key) {
	r.mu.Lock()
	id := key.String()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if ok {
		entry.session.Stop()
	}
}

// Len reports the retained session count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictLocked trims the table to max entries and returns the evicted
// sessions for the caller to stop once the lock is released.
func (r *Registry) evictLocked() []*Session {
	var evicted []*Session
	for len(r.entries) > r.max {
		oldestID := ""
		var oldest time.Time
		for id, entry := range r.entries {
			if oldestID == "" || entry.lastAccess.Before(oldest) {
				oldestID = id
				oldest = entry.lastAccess
			}
		}
		if oldestID == "" {
			break
		}
		evicted = append(evicted, r.entries[oldestID].session)
		delete(r.entries, oldestID)
	}
	return evicted
}
