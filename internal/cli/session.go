package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// Sessions manages the stored sessions of one app (or of the whole backend when app
// is empty).
type Sessions struct {
	store ports.StateStore
	out   io.Writer
}

// NewSessions scopes f's store to app, matching what serve uses for hosted apps.
func NewSessions(f *Factory, app string, out io.Writer) *Sessions {
	store := f.Store()
	if app != "" {
		store = middleware.NewNamespaceMiddleware(app + ".")(store)
	}
	return &Sessions{store: store, out: writerOr(out)}
}

// List prints the known session ids, sorted.
func (s *Sessions) List(ctx context.Context) error {
	ids, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "No active sessions found.")
		return nil
	}
	sort.Strings(ids)
	fmt.Fprintln(s.out, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(s.out, "- "+id)
	}
	return nil
}

// Inspect prints the Store of a session as indented JSON.
func (s *Sessions) Inspect(ctx context.Context, id string) error {
	store, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", id, err)
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

// Remove deletes the given sessions, reporting every failure.
func (s *Sessions) Remove(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(s.out, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
