package tests

import (
	"testing"

	"github.com/aretw0/arbor/pkg/ports"
)

// DefinitionLoaderContractTest verifies that an adapter complies with ports.DefinitionLoader.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, setupData map[string][]byte) {
	t.Helper()

	t.Run("Load_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := loader.Load(name)
			if err != nil {
				t.Fatalf("unexpected error loading %s: %v", name, err)
			}
			if string(content) != string(expected) {
				t.Errorf("content mismatch for %s. got %q, want %q", name, content, expected)
			}
		}
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		if _, err := loader.Load("non-existent-definition"); err == nil {
			t.Error("expected error for non-existent definition, got nil")
		}
	})

	t.Run("List", func(t *testing.T) {
		names, err := loader.List()
		if err != nil {
			t.Fatalf("unexpected error listing definitions: %v", err)
		}
		if len(names) != len(setupData) {
			t.Errorf("expected %d definitions, got %d", len(setupData), len(names))
		}

		lookup := make(map[string]bool)
		for _, name := range names {
			lookup[name] = true
		}
		for name := range setupData {
			if !lookup[name] {
				t.Errorf("definition %s missing from list", name)
			}
		}
	})
}
