package session

import (
	"sync"
)

// InMemoryStore is a volatile session-state store keeping sessions in a
// process-local map. It is safe for concurrent access and best suited for
// tests or single-process deployments. Returned sessions are cloned to
// prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return s.createLocked(sessionID).Clone(), nil
}

// Update merges a key/value delta into the session state, creating the
// session if needed. Implements the coordinator's SharedState collaborator.
func (s *InMemoryStore) Update(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	s.mu.Unlock()
	sess.MergeState(delta)
	return nil
}

// createLocked allocates and stores a new session; caller must already hold
// the write lock.
func (s *InMemoryStore) createLocked(sessionID string) *Session {
	sess := NewSession(sessionID)
	s.sessions[sessionID] = sess
	return sess
}
