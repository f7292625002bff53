package domain

import "encoding/json"

// Store is the session-scoped key/value state. Values are string, bool, []string or
// map[string]any (scoped form buffers).
type Store map[string]any

// NewStore creates an empty store.
func NewStore() Store {
	return make(Store)
}

// Default sets key to v when the key is absent and returns the current value.
func (s Store) Default(key string, v any) any {
	if cur, ok := s[key]; ok {
		return cur
	}
	s[key] = v
	return v
}

// String returns the value at key as a string, or "" if it is not one.
func (s Store) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the value at key as a bool. Non-empty strings are not truthy.
func (s Store) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Truthy reports whether key holds a value a Definition would branch on.
func (s Store) Truthy(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	}
	return true
}

// List returns the value at key as a string list.
func (s Store) List(key string) []string {
	return toStringList(s[key])
}

// Map returns the value at key as a nested map, or nil.
func (s Store) Map(key string) map[string]any {
	v, _ := s[key].(map[string]any)
	return v
}

// Clone returns a deep copy.
func (s Store) Clone() Store {
	if s == nil {
		return nil
	}
	out := make(Store, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Normalize restores []string values that a JSON round trip decoded as []any.
func (s Store) Normalize() Store {
	for k, v := range s {
		s[k] = normalizeValue(v)
	}
	return s
}

// DefaultFor returns the value an interactive node of the given kind starts with.
func DefaultFor(kind Kind, opts Options) any {
	switch kind {
	case KindToggle:
		if b, ok := opts.Default.(bool); ok {
			return b
		}
		return false
	case KindMultiChoice:
		if l := toStringList(opts.Default); l != nil {
			return l
		}
		return []string{}
	case KindForm:
		return map[string]any{}
	default:
		if s, ok := opts.Default.(string); ok {
			return s
		}
		return ""
	}
}

func toStringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if _, ok := e.(string); !ok {
				return t
			}
		}
		return toStringList(t)
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeValue(e)
		}
		return t
	}
	return v
}

// DecodeStore parses a JSON document into a normalized Store.
func DecodeStore(data []byte) (Store, error) {
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = NewStore()
	}
	return s.Normalize(), nil
}
