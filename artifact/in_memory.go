package artifact

import (
	"sync"
	"time"

	"github.com/peregrine-ai/a2arelay/internal/util"
)

// Record is one stored artifact with its provenance metadata.
type Record struct {
	Ref       string         `json:"ref"`
	SessionID string         `json:"session_id"`
	AgentID   string         `json:"agent_id"`
	Type      string         `json:"type"`
	Data      []byte         `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// InMemoryStore is a volatile artifact store keeping records in a nested map
// guarded by an RWMutex. Data is copied on save and retrieval to avoid
// accidental external mutation of internal buffers.
//
// Layout: sessionID -> ref -> Record
//
// It does not enforce retention limits, size quotas, or eviction. For
// production, prefer a durable implementation that survives process
// restarts.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string]Record
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string]Record)}
}

// Store saves the artifact bytes and provenance, returning a generated ref.
// The input slice is copied before storage.
func (s *InMemoryStore) Store(sessionID, agentID, artifactType string, data []byte, metadata map[string]any) (string, error) {
	ref := util.NewID()
	cp := make([]byte, len(data))
	copy(cp, data)
	rec := Record{
		Ref:       ref,
		SessionID: sessionID,
		AgentID:   agentID,
		Type:      artifactType,
		Data:      cp,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[sessionID]; !exists {
		s.artifacts[sessionID] = make(map[string]Record)
	}
	s.artifacts[sessionID][ref] = rec
	return ref, nil
}

// Get returns a copy of the stored record or ErrNotFound.
func (s *InMemoryStore) Get(sessionID, ref string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec, ok := m[ref]
	if !ok {
		return Record{}, ErrNotFound
	}
	cp := make([]byte, len(rec.Data))
	copy(cp, rec.Data)
	rec.Data = cp
	return rec, nil
}

// List returns the refs stored for the session. The slice is a snapshot and
// safe for caller mutation.
func (s *InMemoryStore) List(sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[sessionID]
	if !ok {
		return []string{}, nil
	}
	refs := make([]string, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	return refs, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(sessionID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.artifacts[sessionID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[ref]; !ok {
		return ErrNotFound
	}
	delete(m, ref)
	return nil
}
