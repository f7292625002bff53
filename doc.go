/*
Package arbor is a server-side engine for form-centric interactive UIs.

A UI is described by one Definition: a plain Go function that declares fields,
toggles, choices, actions and scoped forms against a Builder. The engine re-runs the
Definition on every interaction against a session-scoped Store, so conditional
branches on Store values are the whole reactivity model. There is no diffing: every
request rebuilds the tree from state.

# Concept

Each request goes through the same cycle:

 1. Posted values are coerced ("on" and "true" become true, an absent checkbox
    becomes false, multi-valued posts stay lists) and merged into the Store. Only keys
    declared by the session's most recent tree are accepted.
 2. For actions, the tree is rebuilt, the action is located by its stable identifier
    (normalized label plus ordinal, e.g. "greet_1") and its handler runs.
 3. The tree is rebuilt once more and rendered by an Adapter (HTML with htmx and
    Alpine.js conventions, JSON or markdown).

# Usage

	app := arbor.New("greeter", func(b *dsl.Builder) {
		b.Field("name")
		b.Action("Greet", func(s domain.Store) error {
			s["greeting"] = "Hello, " + s.String("name")
			return nil
		})
		if g := b.String("greeting"); g != "" {
			b.Display(g)
		}
	})

	srv := http.NewServer(app)
	log.Fatal(runner.Serve(ctx, srv, runner.WithPortRange(8080, 10)))

# Concurrency

Requests against the same session race with last-write-wins semantics unless the
App is created WithSerialization (or WithLocker for several replicas).
*/
package arbor
