package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/definition"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/aretw0/arbor/pkg/schema"
)

// Tree formats.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMermaid  = "mermaid"
	FormatSchema   = "schema"
)

// TreeOptions configures the tree command.
type TreeOptions struct {
	Def string
	// State is a JSON file holding the Store to build against. Empty means a fresh session.
	State  string
	Format string
	Out    io.Writer
	// Styled pipes markdown through glamour.
	Styled bool
}

// Tree builds def once, without a session, and writes it in the requested format.
func Tree(opts TreeOptions) error {
	d, err := definition.Load(opts.Def)
	if err != nil {
		return err
	}

	store := domain.NewStore()
	if opts.State != "" {
		data, err := os.ReadFile(opts.State)
		if err != nil {
			return fmt.Errorf("failed to read state: %w", err)
		}
		if store, err = domain.DecodeStore(data); err != nil {
			return fmt.Errorf("invalid state: %w", err)
		}
	}

	app := arbor.New(d.Name, d.Def, arbor.WithTitle(d.Title))
	// Build against a copy first: the state must match the types its own tree binds.
	probe, err := app.Preview(store.Clone())
	if err != nil {
		return err
	}
	if err := schema.Validate(schema.FromTree(probe), store); err != nil {
		return fmt.Errorf("state does not match the definition: %w", err)
	}
	tree, err := app.Preview(store)
	if err != nil {
		return err
	}

	out := writerOr(opts.Out)
	page := render.Page{Title: d.Title, Tree: tree, Store: store}

	switch strings.ToLower(opts.Format) {
	case FormatMarkdown, "":
		text, err := tui.RenderPage(page, tui.NewRenderer(opts.Styled))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	case FormatJSON:
		return render.NewJSON().Render(out, page)
	case FormatHTML:
		return render.NewHTML().Render(out, page)
	case FormatMermaid:
		_, err := io.WriteString(out, graph.GenerateMermaid(tree, nil))
		return err
	case FormatSchema:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(schema.FromTree(tree))
	default:
		return fmt.Errorf("unknown format %q (md|json|html|mermaid|schema)", opts.Format)
	}
}

// Validate parses every definition in paths and reports the first failure.
func Validate(out io.Writer, paths ...string) error {
	out = writerOr(out)
	for _, p := range paths {
		var defs []*definition.Definition
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if defs, err = definition.All(definition.NewDir(p)); err != nil {
				return err
			}
		} else {
			d, err := definition.Load(p)
			if err != nil {
				return err
			}
			defs = append(defs, d)
		}

		for _, d := range defs {
			// Build once against an empty store so panics and nesting errors surface too.
			if _, err := arbor.New(d.Name, d.Def).Preview(nil); err != nil {
				return fmt.Errorf("%s: %w", d.Name, err)
			}
			fmt.Fprintf(out, "✓ %s (%d nodes)\n", d.Name, d.NodeCount())
		}
	}
	return nil
}
