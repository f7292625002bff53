// Package render turns a Component Tree into markup.
//
// Adapters are polymorphic backends; each one dispatches over the closed set of
// domain.Kind values and fails loudly on a kind it does not know.
package render

import (
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/domain"
)

// Mode selects between a full document and the anchor fragment alone.
type Mode int

const (
	// Full renders the document shell plus the anchor.
	Full Mode = iota
	// Partial renders only the anchor subtree (the response to an action or form submit).
	Partial
)

// DefaultAnchor is the element id replaced by partial responses.
const DefaultAnchor = "arbor-main"

// Page is everything an Adapter needs for one render.
type Page struct {
	Title    string
	Tree     *domain.Tree
	Store    domain.Store
	Mode     Mode
	Anchor   string
	BasePath string
	// Error is shown inside the anchor, e.g. after a handler failure.
	Error string
	// Submit labels the one-shot completion control posting to BasePath+"/submit".
	// Empty renders none.
	Submit string
}

// Adapter renders a Page.
type Adapter interface {
	Render(w io.Writer, p Page) error
	ContentType() string
}

// ErrUnknownKind is returned when an adapter meets a node kind outside the closed set.
type ErrUnknownKind struct {
	Kind domain.Kind
}

func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("render: unknown node kind %d", int(e.Kind))
}

func (p Page) anchor() string {
	if p.Anchor == "" {
		return DefaultAnchor
	}
	return p.Anchor
}

func (p Page) title() string {
	if p.Title != "" {
		return p.Title
	}
	if p.Tree != nil && p.Tree.Title != "" {
		return p.Tree.Title
	}
	return "Arbor"
}

// valueOf returns the value bound to n, looking inside the scoped form buffer when
// n belongs to one.
func valueOf(store domain.Store, n *domain.Node) any {
	if n.Scope != "" {
		return store.Map(n.Scope)[n.Key]
	}
	return store[n.Key]
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

func listValue(v any) []string {
	return domain.Store{"v": v}.List("v")
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
