package ports

import (
	"context"
	"net/url"

	"github.com/aretw0/arbor/pkg/domain"
)

// Engine is the driving port implemented by an Arbor app. Transports (HTTP, MCP)
// translate requests into these verbs and render the returned Result.
type Engine interface {
	// Name identifies the app (used for mounting and logging).
	Name() string

	// Page loads or creates the session, builds the tree and hydrates defaults.
	Page(ctx context.Context, sessionID string) (*domain.Result, error)

	// Sync merges posted field values into the Store.
	Sync(ctx context.Context, sessionID string, values url.Values) (*domain.Result, error)

	// Act merges posted values, then runs the handler of the action addressed by actionID.
	Act(ctx context.Context, sessionID, actionID string, values url.Values) (*domain.Result, error)

	// SubmitForm replaces the buffer of the scoped form name and runs its commit handler.
	SubmitForm(ctx context.Context, sessionID, name string, values url.Values) (*domain.Result, error)

	// Complete commits every posted value and ends a one-shot app.
	Complete(ctx context.Context, sessionID string, values url.Values) (*domain.Result, error)
}
