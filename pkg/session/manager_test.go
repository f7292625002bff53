package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates IO latency to provoke lost updates when locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (domain.Store, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func (s SlowStore) Save(ctx context.Context, sessionID string, store domain.Store) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, store)
}

func increment(t *testing.T, m *session.Manager, id string, n int) {
	t.Helper()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, id, func(ctx context.Context) error {
				s, _, err := m.LoadOrCreate(ctx, id)
				if err != nil {
					return err
				}
				s["items"] = append(s.List("items"), "x")
				return m.Save(ctx, id, s)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestManager_SerializedNoLostUpdates(t *testing.T) {
	m := session.NewManager(SlowStore{memory.NewStore()}, session.WithSerialization(true))
	increment(t, m, "race", 10)

	s, err := m.Load(context.Background(), "race")
	require.NoError(t, err)
	assert.Len(t, s.List("items"), 10)
	assert.True(t, m.Serialized())
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "arbor:")
	store := SlowStore{memory.NewStore()}

	// Two managers model two replicas sharing one store.
	m1 := session.NewManager(store, session.WithLocker(locker))
	m2 := session.NewManager(store, session.WithLocker(locker))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); increment(t, m1, "shared", 3) }()
	go func() { defer wg.Done(); increment(t, m2, "shared", 3) }()
	wg.Wait()

	s, err := m1.Load(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, s.List("items"), 6)
}

func TestManager_LoadOrCreate(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	ctx := context.Background()

	s, created, err := m.LoadOrCreate(ctx, "new")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, s)

	s["name"] = "Ada"
	require.NoError(t, m.Save(ctx, "new", s))

	s, created, err = m.LoadOrCreate(ctx, "new")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ada", s["name"])

	require.NoError(t, m.Delete(ctx, "new"))
	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManager_UnserializedRunsDirectly(t *testing.T) {
	m := session.NewManager(memory.NewStore())
	assert.False(t, m.Serialized())

	ran := false
	require.NoError(t, m.WithLock(context.Background(), "s", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
