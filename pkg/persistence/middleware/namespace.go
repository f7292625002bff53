package middleware

import (
	"context"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

type namespaceMiddleware struct {
	next   ports.StateStore
	prefix string
}

// NewNamespaceMiddleware prefixes every session id with prefix, so several apps can
// share one backend. List only reports sessions of the namespace, without the prefix.
func NewNamespaceMiddleware(prefix string) Middleware {
	return func(next ports.StateStore) ports.StateStore {
		return &namespaceMiddleware{next: next, prefix: prefix}
	}
}

func (m *namespaceMiddleware) Save(ctx context.Context, sessionID string, store domain.Store) error {
	return m.next.Save(ctx, m.prefix+sessionID, store)
}

func (m *namespaceMiddleware) Load(ctx context.Context, sessionID string) (domain.Store, error) {
	return m.next.Load(ctx, m.prefix+sessionID)
}

func (m *namespaceMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, m.prefix+sessionID)
}

func (m *namespaceMiddleware) List(ctx context.Context) ([]string, error) {
	all, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, id := range all {
		if rest, ok := strings.CutPrefix(id, m.prefix); ok {
			out = append(out, rest)
		}
	}
	return out, nil
}
