package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, sessionID string, store domain.Store) error {
	return nil
}
func (nopStore) Load(ctx context.Context, sessionID string) (domain.Store, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, sessionID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{}, WithSerialization(true))
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.WithLock(ctx, sid, func(ctx context.Context) error {
			return mgr.Save(ctx, sid, domain.NewStore())
		})
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", lockCount)
	}
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(ports.UnlockFunc)
	return unlock, args.Error(1)
}

func TestManager_DistributedLockerContract(t *testing.T) {
	ctx := context.Background()

	t.Run("Unlocks After fn", func(t *testing.T) {
		locker := new(MockLocker)
		unlocked := false
		locker.On("Lock", mock.Anything, "s1", 2*time.Second).
			Return(ports.UnlockFunc(func(context.Context) error {
				unlocked = true
				return nil
			}), nil).Once()

		mgr := NewManager(nopStore{}, WithLocker(locker), WithLockTTL(2*time.Second))
		ran := false
		err := mgr.WithLock(ctx, "s1", func(context.Context) error {
			ran = true
			assert.False(t, unlocked, "lock must be held while fn runs")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.True(t, unlocked)
		locker.AssertExpectations(t)
	})

	t.Run("Acquire Failure Skips fn", func(t *testing.T) {
		locker := new(MockLocker)
		locker.On("Lock", mock.Anything, "s1", DefaultLockTTL).Return(nil, errors.New("busy"))

		mgr := NewManager(nopStore{}, WithLocker(locker))
		err := mgr.WithLock(ctx, "s1", func(context.Context) error {
			t.Fatal("fn must not run without the lock")
			return nil
		})
		assert.ErrorContains(t, err, "busy")
		assert.Empty(t, mgr.locks)
		locker.AssertExpectations(t)
	})

	t.Run("Unlock Failure Is Only Logged", func(t *testing.T) {
		locker := new(MockLocker)
		locker.On("Lock", mock.Anything, "s1", DefaultLockTTL).
			Return(ports.UnlockFunc(func(context.Context) error { return errors.New("gone") }), nil)

		mgr := NewManager(nopStore{}, WithLocker(locker))
		assert.NoError(t, mgr.WithLock(ctx, "s1", func(context.Context) error { return nil }))
	})
}
