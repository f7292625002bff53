package domain

import (
	"reflect"
	"sort"
)

// StoreDiff represents the changes between two snapshots of a session's Store.
// It is serialised to JSON and pushed to event subscribers.
type StoreDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Changes contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Changes map[string]any `json:"changes,omitempty"`
}

// Diff calculates the difference between oldStore and newStore.
// If oldStore is nil, every key of newStore is reported. Returns nil when nothing changed.
func Diff(sessionID string, oldStore, newStore Store) *StoreDiff {
	delta := make(map[string]any)

	for k, newVal := range newStore {
		oldVal, exists := oldStore[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range oldStore {
		if _, exists := newStore[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return &StoreDiff{SessionID: sessionID, Changes: delta}
}

// Keys returns the changed keys in sorted order.
func (d *StoreDiff) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.Changes))
	for k := range d.Changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty checks if the diff contains any changes.
func (d *StoreDiff) IsEmpty() bool {
	return d == nil || len(d.Changes) == 0
}
