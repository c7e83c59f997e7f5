package session

import (
	"slices"
	"strings"
	"sync"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
)

// Registry is an in-memory set of sessions keyed by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults Options
}

// NewRegistry creates an empty registry. defaults is used by Create.
func NewRegistry(defaults Options) *Registry {
	return &Registry{sessions: make(map[string]*Session), defaults: defaults}
}

// Create starts a new session with the registry defaults and registers it.
func (r *Registry) Create() *Session {
	s := New(r.defaults)
	r.Add(s)
	return s
}

// Add registers s, replacing any session with the same id.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session with the given id.
// Returns a SESSION_NOT_FOUND error if there is none.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", id)
	}
	return s, nil
}

// Delete removes a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// List returns all sessions, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cleanup removes sessions that have not changed for longer than maxIdle
// and returns their ids. A non-positive maxIdle removes nothing.
func (r *Registry) Cleanup(maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, s := range r.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}
