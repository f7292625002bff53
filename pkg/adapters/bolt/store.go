// Package bolt implements ports.StateStore on an embedded bbolt database, for
// single-node deployments that want durability without running Redis.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	bolt "go.etcd.io/bbolt"
)

const bucketSessions = "sessions"

// Store keeps one JSON document per session in the "sessions" bucket.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sessions bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Save persists the store.
func (s *Store) Save(ctx context.Context, sessionID string, store domain.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Put([]byte(sessionID), data)
	})
}

// Load retrieves the store.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Store, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSessions)).Get([]byte(sessionID))
		if v == nil {
			return domain.ErrSessionNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	store, err := domain.DecodeStore(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal store: %w", err)
	}
	return store, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Delete([]byte(sessionID))
	})
}

// List returns all session IDs in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	sessions := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketSessions)).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			sessions = append(sessions, string(k))
		}
		return nil
	})
	return sessions, err
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}
