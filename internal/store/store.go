// Package store provides persistence for chatbot sessions.
package store

import (
	"context"

	"github.com/jbranky/site-server/internal/domain"
)

// Mutator is applied to a session inside an atomic read-modify-write.
// Implementations may append messages and change scalar fields; the
// transcript is append-only, so existing messages must not be altered.
type Mutator func(*domain.ChatbotSession) error

// SessionStore defines keyed storage for chatbot sessions.
type SessionStore interface {
	// Create inserts a new session. Returns domain.ErrConflict if the id
	// already exists.
	Create(ctx context.Context, session *domain.ChatbotSession) error

	// GetByID returns the session with its full transcript, or
	// domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.ChatbotSession, error)

	// List returns all sessions with full transcripts, in no guaranteed
	// order. Callers sort for display.
	List(ctx context.Context) ([]*domain.ChatbotSession, error)

	// Update atomically reads the session, applies the mutator, and writes
	// the result back. Concurrent updates to the same id are serialized so
	// an appended message is never lost to a racing metadata patch.
	// Returns domain.ErrNotFound for unknown ids.
	Update(ctx context.Context, id string, fn Mutator) (*domain.ChatbotSession, error)

	// Ping verifies the backing medium is reachable.
	Ping(ctx context.Context) error

	// Close releases backing resources.
	Close() error
}
