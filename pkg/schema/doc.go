// Package schema describes the shape of a session Store as implied by a Component
// Tree, and checks values against it.
//
// Every interactive node binds one key with a fixed value type: text fields and
// areas hold strings, toggles hold bools, choices hold one of their options and
// multi-choices hold lists of strings. A scoped form binds an object whose fields
// follow the same rules.
//
//	s := schema.FromTree(tree)
//	if err := schema.Validate(s, values); err != nil {
//	    for _, e := range schema.ValidationErrors(err) { ... }
//	}
//
// Keys absent from the data are not errors: the next build defaults them.
package schema
