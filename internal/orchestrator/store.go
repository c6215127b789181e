package orchestrator

import (
	"sync"

	"vidspark/internal/domain"
)

// Store keeps sessions in memory for the lifetime of the process. There is
// deliberately no durable layer behind it; a restart forgets all sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore initializes an empty session store.
func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}}
}

func (s *Store) put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.id] = session
}

// Get returns the live session for id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return session, nil
}
