/*
Package dsl is the Tree Builder: it executes a Definition Block against a session
Store and produces a Component Tree.

The same Definition, given different Store contents, legitimately produces
structurally different trees; conditional branching on Store values is the entire
reactivity mechanism. Declaration order is load-bearing: it drives both render
order and the identifiers handed out to action nodes.

Example usage:

	def := func(b *dsl.Builder) {
		b.Title("Greeter")
		b.Field("name", dsl.Placeholder("Your name"))
		b.Action("Greet", func(s domain.Store) error {
			s["greeting"] = "Hello, " + s.String("name")
			return nil
		})
		if g := b.String("greeting"); g != "" {
			b.Display(g)
		}
		b.Form("profile", func(b *dsl.Builder) {
			b.Field("email")
			b.Toggle("newsletter")
		}, dsl.OnSubmit(func(s domain.Store) error {
			s["saved"] = true
			return nil
		}))
	}

	tree, err := dsl.Build(def, store)
*/
package dsl
