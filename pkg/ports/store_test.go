package ports_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// MockStore is an in-memory implementation of StateStore used to exercise the contract
// suite itself.
type MockStore struct {
	data map[string]domain.Store
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]domain.Store)}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, store domain.Store) error {
	m.data[sessionID] = store.Clone()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (domain.Store, error) {
	store, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return store.Clone(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, NewMockStore())
}
