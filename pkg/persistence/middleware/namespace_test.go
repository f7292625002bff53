package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceMiddleware_Isolation(t *testing.T) {
	underlying := NewMockStore()
	alpha := middleware.NewNamespaceMiddleware("alpha.")(underlying)
	beta := middleware.NewNamespaceMiddleware("beta.")(underlying)
	ctx := context.Background()

	require.NoError(t, alpha.Save(ctx, "s1", domain.Store{"count": "1"}))
	require.NoError(t, beta.Save(ctx, "s1", domain.Store{"count": "2"}))
	require.NoError(t, beta.Save(ctx, "s2", domain.Store{}))

	a, err := alpha.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "1", a["count"])

	ids, err := beta.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)

	raw, err := underlying.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha.s1", "beta.s1", "beta.s2"}, raw)

	require.NoError(t, alpha.Delete(ctx, "s1"))
	_, err = alpha.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = beta.Load(ctx, "s1")
	assert.NoError(t, err)
}
