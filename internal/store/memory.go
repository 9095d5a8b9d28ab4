package store

import (
	"context"
	"sync"

	"github.com/jbranky/site-server/internal/domain"
)

// MemoryStore implements SessionStore in process memory. It is not durable
// across restarts; it backs tests and token-free local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ChatbotSession
}

// NewMemory creates an empty in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.ChatbotSession)}
}

// Create inserts a new session record.
func (s *MemoryStore) Create(_ context.Context, session *domain.ChatbotSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return domain.ErrConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// GetByID returns a deep copy of the session.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.ChatbotSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return session.Clone(), nil
}

// List returns deep copies of all sessions.
func (s *MemoryStore) List(_ context.Context) ([]*domain.ChatbotSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ChatbotSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	return out, nil
}

// Update applies the mutator under the write lock, so concurrent appends and
// metadata patches to the same session cannot lose each other's writes.
func (s *MemoryStore) Update(_ context.Context, id string, fn Mutator) (*domain.ChatbotSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	next := session.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.sessions[id] = next
	return next.Clone(), nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
