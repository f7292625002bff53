package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// StateStore persists one domain.Store per session.
type StateStore interface {
	// Save persists the store for a given session ID.
	Save(ctx context.Context, sessionID string, store domain.Store) error

	// Load retrieves the store for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Store, error)

	// Delete removes the store for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of known sessions.
	List(ctx context.Context) ([]string, error)
}
