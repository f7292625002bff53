package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  Store
		new  Store
		want map[string]any // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  Store{"name": "", "agree": false},
			want: map[string]any{"name": "", "agree": false},
		},
		{
			name: "No Changes",
			old:  Store{"name": "Alice", "tags": []string{"a"}},
			new:  Store{"name": "Alice", "tags": []string{"a"}},
			want: nil,
		},
		{
			name: "Added & Modified",
			old:  Store{"name": "Alice", "agree": false},
			new:  Store{"name": "Bob", "agree": false, "greeting": "Hello, Bob"},
			want: map[string]any{"name": "Bob", "greeting": "Hello, Bob"},
		},
		{
			name: "Deletion",
			old:  Store{"a": "1", "b": "2"},
			new:  Store{"a": "1"},
			want: map[string]any{"b": nil},
		},
		{
			name: "Nested Form Buffer",
			old:  Store{"profile": map[string]any{"first": "A"}},
			new:  Store{"profile": map[string]any{"first": "B"}},
			want: map[string]any{"profile": map[string]any{"first": "B"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff("sess-1", tt.old, tt.new)
			if tt.want == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.want)
			}
			if got.SessionID != "sess-1" {
				t.Errorf("Diff().SessionID = %v, want sess-1", got.SessionID)
			}
			if !reflect.DeepEqual(got.Changes, tt.want) {
				t.Errorf("Diff().Changes = %v, want %v", got.Changes, tt.want)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		diff := Diff("s", Store{"a": "1", "b": "2"}, Store{"a": "1"})
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})

	t.Run("Keys Sorted", func(t *testing.T) {
		diff := Diff("s", nil, Store{"z": "1", "a": "2", "m": true})
		if got := strings.Join(diff.Keys(), ","); got != "a,m,z" {
			t.Errorf("Keys() = %s, want a,m,z", got)
		}
	})
}
