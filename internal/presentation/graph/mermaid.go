package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Overlay contains session data to visualize on the tree.
type Overlay struct {
	// Changed lists Store keys changed by the last request; nodes bound to them are highlighted.
	Changed []string
	// Target is the id of the action (or name of the form) that was just invoked.
	Target string
}

// GenerateMermaid produces a Mermaid flowchart of a Component Tree. Edges follow
// containment in declaration order. Shapes by kind:
//   - Root and sections: [Rectangle]
//   - Scoped form: ((Circle))
//   - Action: [[Subroutine]]
//   - Interactive field: [/Parallelogram/]
//   - Display and raw: (Rounded)
func GenerateMermaid(tree *domain.Tree, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[*domain.Node]string)
	bound := make(map[string][]string)
	seq := 0
	idOf := func(n *domain.Node) string {
		if id, ok := ids[n]; ok {
			return id
		}
		seq++
		id := fmt.Sprintf("n%d", seq)
		if n.ID != "" {
			id = sanitizeMermaidID(n.ID)
		}
		ids[n] = id
		return id
	}

	tree.Walk(func(n *domain.Node) bool {
		id := idOf(n)
		opener, closer := "[", "]"
		switch {
		case n.Kind == domain.KindForm:
			opener, closer = "((", "))"
		case n.Kind == domain.KindAction:
			opener, closer = "[[", "]]"
		case n.Kind.Interactive():
			opener, closer = "[/", "/]"
		case n.Kind == domain.KindDisplay || n.Kind == domain.KindRaw:
			opener, closer = "(", ")"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label(tree, n), closer)

		if n.Key != "" && n.Kind != domain.KindForm {
			key := n.Key
			if n.Scope != "" {
				key = n.Scope
			}
			bound[key] = append(bound[key], id)
		} else if n.Kind == domain.KindForm {
			bound[n.Key] = append(bound[n.Key], id)
		}

		for _, c := range n.Children {
			arrow := "-->"
			if c.Scope != "" && n.Kind != domain.KindForm {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", id, arrow, idOf(c))
		}
		return true
	})

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds.
		sb.WriteString("    classDef changed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef target fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, key := range overlay.Changed {
			for _, id := range bound[key] {
				if !seen[id] {
					seen[id] = true
					fmt.Fprintf(&sb, "    class %s changed;\n", id)
				}
			}
		}
		if overlay.Target != "" {
			if ids := bound[overlay.Target]; len(ids) > 0 {
				fmt.Fprintf(&sb, "    class %s target;\n", ids[0])
			} else {
				fmt.Fprintf(&sb, "    class %s target;\n", sanitizeMermaidID(overlay.Target))
			}
		}
	}

	return sb.String()
}

func label(tree *domain.Tree, n *domain.Node) string {
	var text string
	switch {
	case n == tree.Root:
		text = tree.Title
		if text == "" {
			text = "root"
		}
	case n.Kind == domain.KindAction:
		text = n.Label + " <br/> " + n.ID
	case n.Kind == domain.KindContainer && n.Label != "":
		text = n.Label
	case n.Kind == domain.KindDisplay || n.Kind == domain.KindRaw:
		text = n.Text
		if len(text) > 40 {
			text = text[:37] + "..."
		}
	case n.Label != "" && n.Label != n.Key:
		text = n.Label + " <br/> " + n.Kind.String() + " " + n.Key
	default:
		text = strings.TrimSpace(n.Kind.String() + " " + n.Key)
	}
	// Mermaid labels cannot contain double quotes.
	return strings.ReplaceAll(text, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
