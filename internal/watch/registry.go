// Package watch turns native filesystem notifications into ordered,
// normalized change events per client session.
package watch

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the watch sessions of the process
type Registry struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewRegistry creates a new watch registry
func NewRegistry(opts Options, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		opts:     opts.WithDefaults(),
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session with the given id, creating it if needed
func (r *Registry) Open(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrSessionClosed
	}
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	s := newSession(id, r.opts, r.log)
	r.sessions[id] = s
	return s, nil
}

// Session looks up an open session
func (r *Registry) Session(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// CloseSession stops every subscription of the session and forgets it
func (r *Registry) CloseSession(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Sessions returns the ids of open sessions
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Options returns the effective options
func (r *Registry) Options() Options {
	return r.opts
}

// Close shuts down every session
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
