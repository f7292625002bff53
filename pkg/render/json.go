package render

import (
	"encoding/json"
	"io"

	"github.com/aretw0/arbor/pkg/domain"
)

// JSON renders the tree as a machine-readable document, used by API clients and
// the MCP adapter.
type JSON struct {
	Indent bool
}

// NodeView is the JSON shape of one node with its current value resolved.
type NodeView struct {
	Kind     string      `json:"kind"`
	Key      string      `json:"key,omitempty"`
	ID       string      `json:"id,omitempty"`
	Label    string      `json:"label,omitempty"`
	Scope    string      `json:"scope,omitempty"`
	Text     string      `json:"text,omitempty"`
	Value    any         `json:"value,omitempty"`
	Choices  []string    `json:"choices,omitempty"`
	Children []*NodeView `json:"children,omitempty"`
}

// PageView is the JSON document produced by the JSON adapter.
type PageView struct {
	Title string      `json:"title"`
	Error string      `json:"error,omitempty"`
	Nodes []*NodeView `json:"nodes"`
}

// NewJSON creates the JSON adapter.
func NewJSON() *JSON {
	return &JSON{}
}

func (j *JSON) ContentType() string {
	return "application/json"
}

func (j *JSON) Render(w io.Writer, p Page) error {
	view, err := View(p)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(view)
}

// View converts a Page into its serialisable form.
func View(p Page) (*PageView, error) {
	view := &PageView{Title: p.title(), Error: p.Error, Nodes: []*NodeView{}}
	if p.Tree == nil || p.Tree.Root == nil {
		return view, nil
	}
	for _, n := range p.Tree.Root.Children {
		nv, err := nodeView(p.Store, n)
		if err != nil {
			return nil, err
		}
		view.Nodes = append(view.Nodes, nv)
	}
	return view, nil
}

func nodeView(store domain.Store, n *domain.Node) (*NodeView, error) {
	nv := &NodeView{Kind: n.Kind.String(), Key: n.Key, ID: n.ID, Label: n.Label, Scope: n.Scope}
	switch n.Kind {
	case domain.KindField, domain.KindTextArea, domain.KindToggle:
		nv.Value = valueOf(store, n)
	case domain.KindChoice, domain.KindMultiChoice:
		nv.Value = valueOf(store, n)
		nv.Choices = n.Options.Choices
	case domain.KindDisplay, domain.KindRaw:
		nv.Text = n.Text
	case domain.KindForm:
		nv.Value = store.Map(n.Key)
	case domain.KindContainer, domain.KindAction:
	default:
		return nil, ErrUnknownKind{Kind: n.Kind}
	}
	for _, c := range n.Children {
		cv, err := nodeView(store, c)
		if err != nil {
			return nil, err
		}
		nv.Children = append(nv.Children, cv)
	}
	return nv, nil
}
