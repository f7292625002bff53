package domain

// Kind enumerates the closed set of component node kinds.
type Kind int

const (
	KindContainer   Kind = iota // ordered group of children (root, sections)
	KindField                   // single-line text input
	KindTextArea                // multi-line text input
	KindToggle                  // checkbox
	KindChoice                  // single select
	KindMultiChoice             // multi select, list-valued
	KindAction                  // button with an attached handler
	KindDisplay                 // escaped text
	KindRaw                     // structured content rendered without escaping
	KindForm                    // scoped form with a deferred edit buffer
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindField:
		return "field"
	case KindTextArea:
		return "textarea"
	case KindToggle:
		return "toggle"
	case KindChoice:
		return "choice"
	case KindMultiChoice:
		return "multichoice"
	case KindAction:
		return "action"
	case KindDisplay:
		return "display"
	case KindRaw:
		return "raw"
	case KindForm:
		return "form"
	default:
		return "unknown"
	}
}

// Interactive reports whether nodes of this kind bind a value that the client submits.
func (k Kind) Interactive() bool {
	switch k {
	case KindField, KindTextArea, KindToggle, KindChoice, KindMultiChoice:
		return true
	}
	return false
}

// Handler mutates the Store in place. It is attached to action nodes and to scoped
// forms (as the commit handler).
type Handler func(Store) error

// Options holds per-node rendering options.
type Options struct {
	Placeholder string   `json:"placeholder,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Default     any      `json:"default,omitempty"`
	Class       string   `json:"class,omitempty"`
	Rows        int      `json:"rows,omitempty"`
	SubmitLabel string   `json:"submit_label,omitempty"`
}

// Node is one element of a Component Tree.
type Node struct {
	Kind     Kind    `json:"kind"`
	Key      string  `json:"key,omitempty"`
	Label    string  `json:"label,omitempty"`
	ID       string  `json:"id,omitempty"`
	Scope    string  `json:"scope,omitempty"`
	Text     string  `json:"text,omitempty"`
	Options  Options `json:"options"`
	Children []*Node `json:"children,omitempty"`

	Handler  Handler `json:"-"`
	OnSubmit Handler `json:"-"`
}

// Tree is the result of one Tree Build. It is rendered once and discarded.
type Tree struct {
	Title string `json:"title,omitempty"`
	Root  *Node  `json:"root"`
}

// NewTree wraps the given children in a root container.
func NewTree(title string, children []*Node) *Tree {
	return &Tree{
		Title: title,
		Root:  &Node{Kind: KindContainer, Children: children},
	}
}

// Walk visits every node depth-first in declaration order.
// Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		walk(c, fn)
	}
}

// Bindings returns the top-level interactive nodes in declaration order.
// Nodes inside scoped forms are excluded: their values travel only on form submit.
func (t *Tree) Bindings() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.Kind == KindForm {
			return false
		}
		if n.Kind.Interactive() && n.Key != "" {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Actions returns every action node in declaration order.
func (t *Tree) Actions() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.Kind == KindAction {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Action locates an action node by its stable identifier.
func (t *Tree) Action(id string) (*Node, bool) {
	var found *Node
	t.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == KindAction && n.ID == id {
			found = n
		}
		return true
	})
	return found, found != nil
}

// Form locates a scoped form by name.
func (t *Tree) Form(name string) (*Node, bool) {
	var found *Node
	t.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == KindForm && n.Key == name {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Forms returns every scoped form in declaration order.
func (t *Tree) Forms() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.Kind == KindForm {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// Fields returns the interactive children of a scoped form in declaration order.
func (n *Node) Fields() []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(c *Node) {
		for _, ch := range c.Children {
			if ch.Kind.Interactive() && ch.Key != "" {
				out = append(out, ch)
			}
			visit(ch)
		}
	}
	visit(n)
	return out
}
