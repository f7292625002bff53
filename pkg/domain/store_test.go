package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Default(t *testing.T) {
	s := domain.NewStore()

	assert.Equal(t, []string{}, s.Default("items", []string{}))
	s["items"] = []string{"a"}
	assert.Equal(t, []string{"a"}, s.Default("items", []string{}), "existing value must win")
}

func TestStore_CloneIsDeep(t *testing.T) {
	s := domain.Store{
		"tags":    []string{"a"},
		"profile": map[string]any{"first": "Ada"},
	}
	c := s.Clone()
	c.Map("profile")["first"] = "Grace"
	c["tags"].([]string)[0] = "z"

	assert.Equal(t, "Ada", s.Map("profile")["first"])
	assert.Equal(t, []string{"a"}, s.List("tags"))
}

func TestStore_NormalizeAfterJSON(t *testing.T) {
	data, err := json.Marshal(domain.Store{
		"tags":    []string{"x", "y"},
		"empty":   []string{},
		"profile": map[string]any{"langs": []string{"go"}},
	})
	require.NoError(t, err)

	var s domain.Store
	require.NoError(t, json.Unmarshal(data, &s))
	s.Normalize()

	assert.Equal(t, []string{"x", "y"}, s["tags"])
	assert.Equal(t, []string{}, s["empty"])
	assert.Equal(t, []string{"go"}, s.Map("profile")["langs"])
}

func TestStore_Truthy(t *testing.T) {
	s := domain.Store{"on": true, "off": false, "text": "x", "blank": "", "list": []string{}}
	assert.True(t, s.Truthy("on"))
	assert.False(t, s.Truthy("off"))
	assert.True(t, s.Truthy("text"))
	assert.False(t, s.Truthy("blank"))
	assert.False(t, s.Truthy("list"))
	assert.False(t, s.Truthy("missing"))
}

func TestDefaultFor(t *testing.T) {
	assert.Equal(t, "", domain.DefaultFor(domain.KindField, domain.Options{}))
	assert.Equal(t, false, domain.DefaultFor(domain.KindToggle, domain.Options{}))
	assert.Equal(t, "b", domain.DefaultFor(domain.KindChoice, domain.Options{Default: "b"}))
	assert.Equal(t, "", domain.DefaultFor(domain.KindChoice, domain.Options{}))
	assert.Equal(t, []string{}, domain.DefaultFor(domain.KindMultiChoice, domain.Options{}))
	assert.Equal(t, map[string]any{}, domain.DefaultFor(domain.KindForm, domain.Options{}))
}

func TestInvoke_ContainsPanics(t *testing.T) {
	s := domain.NewStore()
	err := domain.Invoke("boom_1", func(domain.Store) error { panic("kaboom") }, s)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	var herr *domain.HandlerError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "boom_1", herr.NodeID)
	assert.Equal(t, "kaboom", herr.Panic)
}

func TestInvoke_WrapsErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := domain.Invoke("save_1", func(domain.Store) error { return cause }, domain.NewStore())

	assert.ErrorIs(t, err, domain.ErrHandlerFailure)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, domain.Invoke("noop_1", nil, domain.NewStore()))
}

func TestTree_Navigation(t *testing.T) {
	form := &domain.Node{Kind: domain.KindForm, Key: "profile", Children: []*domain.Node{
		{Kind: domain.KindField, Key: "first", Scope: "profile"},
	}}
	tree := domain.NewTree("t", []*domain.Node{
		{Kind: domain.KindField, Key: "name"},
		{Kind: domain.KindAction, ID: "greet_1", Label: "Greet"},
		form,
		{Kind: domain.KindContainer, Children: []*domain.Node{
			{Kind: domain.KindToggle, Key: "agree"},
			{Kind: domain.KindAction, ID: "reset_2", Label: "Reset"},
		}},
	})

	var keys []string
	for _, n := range tree.Bindings() {
		keys = append(keys, n.Key)
	}
	assert.Equal(t, []string{"name", "agree"}, keys, "form children must not be top-level bindings")

	act, ok := tree.Action("reset_2")
	require.True(t, ok)
	assert.Equal(t, "Reset", act.Label)

	_, ok = tree.Action("reset_9")
	assert.False(t, ok)

	f, ok := tree.Form("profile")
	require.True(t, ok)
	require.Len(t, f.Fields(), 1)
	assert.Equal(t, "first", f.Fields()[0].Key)
	assert.Len(t, tree.Actions(), 2)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "multichoice", domain.KindMultiChoice.String())
	assert.Equal(t, "unknown", domain.Kind(99).String())
	assert.True(t, domain.KindToggle.Interactive())
	assert.False(t, domain.KindAction.Interactive())
}
