package session

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"painel/pkg/metrics"
)

// Registry owns the open sessions of a process. Sessions never share cached
// state with each other.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	newSession func() *Session
}

func NewRegistry(newSession func() *Session) *Registry {
	return &Registry{
		sessions:   map[string]*Session{},
		newSession: newSession,
	}
}

func (r *Registry) Create() *Session {
	s := r.newSession()
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
	log.WithField("session", s.ID).Debug("session opened")
	return s
}

func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	log.WithField("session", id).Debug("session closed")
	return nil
}

// CloseAll tears down every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		_ = r.Close(id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
