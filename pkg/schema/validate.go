package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

// Schema is a map of Store keys to their expected types.
type Schema map[string]Type

// FromTree derives the Store schema bound by tree.
func FromTree(tree *domain.Tree) Schema {
	s := make(Schema)
	for _, n := range tree.Bindings() {
		s[n.Key] = typeOf(n)
	}
	for _, f := range tree.Forms() {
		fields := make(Schema)
		for _, n := range f.Fields() {
			fields[n.Key] = typeOf(n)
		}
		s[f.Key] = Object(fields)
	}
	return s
}

func typeOf(n *domain.Node) Type {
	switch n.Kind {
	case domain.KindToggle:
		return Bool()
	case domain.KindChoice:
		return Enum(n.Options.Choices...)
	case domain.KindMultiChoice:
		return Slice(Enum(n.Options.Choices...))
	default:
		return String()
	}
}

// Validate checks the keys of data that the schema knows. Unknown and missing
// keys are ignored. Every failure is reported, ordered by key.
func Validate(schema Schema, data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		if _, ok := schema[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := schema[k].Validate(data[k]); err != nil {
			errs = append(errs, &ValidationError{Key: k, Reason: err.Error(), Value: data[k]})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// MarshalJSON serializes the schema as a map of field names to type names, with
// scoped forms nested.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make(map[string]any, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		if obj, ok := typ.(*ObjectType); ok {
			raw[key] = obj.fields
			continue
		}
		raw[key] = typ.Name()
	}
	return json.Marshal(raw)
}
