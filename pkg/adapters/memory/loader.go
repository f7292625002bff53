package memory

import (
	"fmt"
	"sort"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	docs map[string][]byte
}

// NewLoader creates a Loader from raw definition documents keyed by name.
func NewLoader(data map[string]string) *Loader {
	docs := make(map[string][]byte, len(data))
	for k, v := range data {
		docs[k] = []byte(v)
	}
	return &Loader{docs: docs}
}

// Load returns the raw document registered under name.
func (l *Loader) Load(name string) ([]byte, error) {
	content, ok := l.docs[name]
	if !ok {
		return nil, fmt.Errorf("definition not found: %s", name)
	}
	return content, nil
}

// List returns all definition names.
func (l *Loader) List() ([]string, error) {
	keys := make([]string, 0, len(l.docs))
	for k := range l.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
