package arbor_test

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

func ExampleApp_Act() {
	app := arbor.New("greeter", func(b *dsl.Builder) {
		b.Field("name")
		b.Action("Greet", func(s domain.Store) error {
			s["greeting"] = "Hello, " + s.String("name")
			return nil
		})
	})

	ctx := context.Background()
	if _, err := app.Sync(ctx, "session-1", url.Values{"name": {"Alice"}}); err != nil {
		panic(err)
	}
	res, err := app.Act(ctx, "session-1", "greet_1", nil)
	if err != nil {
		panic(err)
	}

	fmt.Println(res.Store["greeting"])
	fmt.Println(res.Changed)
	// Output:
	// Hello, Alice
	// [greeting]
}

func ExampleApp_Preview() {
	app := arbor.New("todo", func(b *dsl.Builder) {
		b.Field("draft")
		b.Action("Add", nil)
		for range b.List("items") {
			b.Action("Remove", nil)
		}
	})

	tree, err := app.Preview(domain.Store{"items": []string{"milk", "eggs"}})
	if err != nil {
		panic(err)
	}
	for _, n := range tree.Actions() {
		fmt.Println(n.ID)
	}
	// Output:
	// add_1
	// remove_2
	// remove_3
}
