package session

import (
	"sync"
	"time"
)

// Session is a shared-state container scoped to one session id. It is safe
// for concurrent access.
//
// Contract:
//   - State mutations update the Updated timestamp
//   - Clone performs deep copies of the state map for safe divergence
type Session struct {
	ID      string         `json:"id"`
	State   map[string]any `json:"state"`
	Created time.Time      `json:"created"`
	Updated time.Time      `json:"updated"`

	mu sync.RWMutex
}

// NewSession constructs an empty session.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, State: make(map[string]any), Created: now, Updated: now}
}

// MergeState applies a key/value delta to the session state.
func (s *Session) MergeState(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.State[k] = v
	}
	s.Updated = time.Now().UTC()
}

// Get returns a single state value.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// Clone returns a deep copy safe for divergence from the original.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := &Session{ID: s.ID, State: make(map[string]any, len(s.State)), Created: s.Created, Updated: s.Updated}
	for k, v := range s.State {
		cp.State[k] = v
	}
	return cp
}
