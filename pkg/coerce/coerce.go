// Package coerce reconciles client-submitted form values with the types already held
// in a session Store.
//
// Only keys declared by the most recently built tree are ever considered; posted
// keys the tree does not declare are ignored.
package coerce

import (
	"net/url"
	"reflect"

	"github.com/aretw0/arbor/pkg/domain"
)

// Value coerces the posted values of one key.
//
// present reports whether the key appeared in the body at all; prior is the value
// currently stored; multi marks list-valued nodes. The boolean result is false when
// the stored value must be left untouched.
func Value(values []string, present bool, prior any, multi bool) (any, bool) {
	if !present {
		// Absent means unchecked for toggles. Lists resubmit in full or not at all.
		if _, ok := prior.(bool); ok {
			return false, true
		}
		return prior, false
	}

	if multi || len(values) > 1 || isList(prior) {
		return compact(values), true
	}

	var v string
	if len(values) > 0 {
		v = values[0]
	}
	switch v {
	case "true", "on":
		return true, true
	case "false":
		return false, true
	}
	return v, true
}

// Apply merges form into store for every top-level binding of the tree and returns
// the keys whose stored value changed, in declaration order.
func Apply(store domain.Store, bindings []*domain.Node, form url.Values) []string {
	var changed []string
	seen := make(map[string]bool, len(bindings))
	for _, n := range bindings {
		if seen[n.Key] {
			continue
		}
		seen[n.Key] = true

		values, present := form[n.Key]
		prior := store[n.Key]
		next, ok := Value(values, present, prior, n.Kind == domain.KindMultiChoice)
		if !ok {
			continue
		}
		if !reflect.DeepEqual(prior, next) {
			changed = append(changed, n.Key)
		}
		store[n.Key] = next
	}
	return changed
}

// Scoped decodes the bracket-namespaced fields of a scoped form (name[field]) into a
// fresh buffer seeded from the current one. Fields the form does not declare are
// dropped.
func Scoped(form *domain.Node, current map[string]any, values url.Values) map[string]any {
	out := make(map[string]any, len(current))
	for k, v := range domain.Store(current).Clone() {
		out[k] = v
	}
	for _, f := range form.Fields() {
		posted, present := values[FieldName(form.Key, f.Key)]
		prior, known := out[f.Key]
		if !known {
			prior = domain.DefaultFor(f.Kind, f.Options)
		}
		next, ok := Value(posted, present, prior, f.Kind == domain.KindMultiChoice)
		if !ok {
			next = prior
		}
		out[f.Key] = next
	}
	return out
}

// FieldName returns the submission name of field inside scope.
func FieldName(scope, field string) string {
	if scope == "" {
		return field
	}
	return scope + "[" + field + "]"
}

func isList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

// compact drops the empty marker entries a renderer emits so that a list field with
// no selection still appears in the body. Zero entries yield an empty, non-nil list.
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
