package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.Store{
			"name":    "Ada",
			"agree":   true,
			"tags":    []string{"go", "web"},
			"none":    []string{},
			"profile": map[string]any{"first": "Ada", "langs": []string{"en"}},
		}

		require.NoError(t, store.Save(ctx, sessionID, s), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "Ada", loaded["name"])
		assert.Equal(t, true, loaded["agree"])
		// Serialising stores must restore list values as []string.
		assert.Equal(t, []string{"go", "web"}, loaded["tags"])
		assert.Equal(t, []string{}, loaded["none"])
		assert.Equal(t, []string{"en"}, loaded.Map("profile")["langs"])
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		s := domain.Store{"tags": []string{"a"}}
		require.NoError(t, store.Save(ctx, sessionID, s))
		s["tags"].([]string)[0] = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, loaded["tags"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewStore()))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewStore())
		_ = store.Save(ctx, id2, domain.NewStore())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
