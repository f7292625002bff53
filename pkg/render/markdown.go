package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Markdown renders a read-only view of the tree, suitable for terminals
// (piped through glamour) and for logs.
type Markdown struct{}

// NewMarkdown creates the Markdown adapter.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

func (m *Markdown) ContentType() string {
	return "text/markdown; charset=utf-8"
}

func (m *Markdown) Render(w io.Writer, p Page) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.title())
	if p.Error != "" {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", p.Error)
	}
	if p.Tree != nil && p.Tree.Root != nil {
		for _, n := range p.Tree.Root.Children {
			if err := m.node(&b, p.Store, n, 2); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (m *Markdown) node(b *strings.Builder, store domain.Store, n *domain.Node, depth int) error {
	switch n.Kind {
	case domain.KindContainer, domain.KindForm:
		if n.Label != "" {
			fmt.Fprintf(b, "\n%s %s\n\n", strings.Repeat("#", min(depth, 6)), n.Label)
		}
		for _, c := range n.Children {
			if err := m.node(b, store, c, depth+1); err != nil {
				return err
			}
		}
		if n.Kind == domain.KindForm {
			label := n.Options.SubmitLabel
			if label == "" {
				label = "Submit"
			}
			fmt.Fprintf(b, "- [%s] (form `%s`)\n", label, n.Key)
		}
	case domain.KindField, domain.KindTextArea:
		fmt.Fprintf(b, "- **%s**: `%s`\n", n.Label, stringValue(valueOf(store, n)))
	case domain.KindToggle:
		mark := " "
		if v, _ := valueOf(store, n).(bool); v {
			mark = "x"
		}
		fmt.Fprintf(b, "- [%s] %s\n", mark, n.Label)
	case domain.KindChoice:
		fmt.Fprintf(b, "- **%s**: `%s` (%s)\n", n.Label, stringValue(valueOf(store, n)), strings.Join(n.Options.Choices, " | "))
	case domain.KindMultiChoice:
		fmt.Fprintf(b, "- **%s**: `%s` (%s)\n", n.Label, strings.Join(listValue(valueOf(store, n)), ", "), strings.Join(n.Options.Choices, " | "))
	case domain.KindAction:
		fmt.Fprintf(b, "- [%s] (`%s`)\n", n.Label, n.ID)
	case domain.KindDisplay, domain.KindRaw:
		fmt.Fprintf(b, "\n%s\n\n", n.Text)
	default:
		return ErrUnknownKind{Kind: n.Kind}
	}
	return nil
}
