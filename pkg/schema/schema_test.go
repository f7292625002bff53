package schema_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T) *domain.Tree {
	t.Helper()
	tr, err := dsl.Build(func(b *dsl.Builder) {
		b.Field("name")
		b.Toggle("subscribed")
		b.Choice("plan", []string{"free", "pro"})
		b.MultiChoice("tags", []string{"a", "b"})
		b.Action("Save", nil)
		b.Form("address", func(b *dsl.Builder) {
			b.TextArea("street")
			b.Toggle("primary")
		})
	}, domain.NewStore())
	require.NoError(t, err)
	return tr
}

func TestFromTree(t *testing.T) {
	s := schema.FromTree(tree(t))

	got := map[string]string{}
	for k, typ := range s {
		got[k] = typ.Name()
	}
	assert.Equal(t, map[string]string{
		"name":       "string",
		"subscribed": "bool",
		"plan":       "enum(free|pro)",
		"tags":       "[enum(a|b)]",
		"address":    "object",
	}, got)
}

func TestValidate(t *testing.T) {
	s := schema.FromTree(tree(t))

	tests := []struct {
		name string
		data map[string]any
		keys []string
	}{
		{
			name: "Valid",
			data: map[string]any{
				"name": "Ada", "subscribed": true, "plan": "pro", "tags": []any{"a"},
				"address": map[string]any{"street": "Main", "primary": false},
			},
		},
		{
			name: "Missing And Unknown Keys Are Ignored",
			data: map[string]any{"other": 3},
		},
		{
			name: "Empty Choice",
			data: map[string]any{"plan": ""},
		},
		{
			name: "Mismatches",
			data: map[string]any{
				"name": 3.0, "subscribed": "yes", "plan": "gold", "tags": "a",
				"address": map[string]any{"primary": "no"},
			},
			keys: []string{"address", "name", "plan", "subscribed", "tags"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(s, tt.data)
			if len(tt.keys) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var keys []string
			for _, e := range schema.ValidationErrors(err) {
				keys = append(keys, e.(*schema.ValidationError).Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestValidationErrors_Wrapped(t *testing.T) {
	err := schema.Validate(schema.Schema{"n": schema.Bool()}, map[string]any{"n": 1})
	wrapped := fmt.Errorf("invalid fields: %w", err)
	assert.Len(t, schema.ValidationErrors(wrapped), 1)
	assert.Contains(t, wrapped.Error(), `field "n": expected bool, got int`)
	assert.Nil(t, schema.ValidationErrors(assert.AnError))
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(schema.FromTree(tree(t)))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "string",
		"subscribed": "bool",
		"plan": "enum(free|pro)",
		"tags": "[enum(a|b)]",
		"address": {"street": "string", "primary": "bool"}
	}`, string(data))
}
