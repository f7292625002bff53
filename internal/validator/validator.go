// Package validator checks decoded definition documents before compilation, so a
// broken document fails at load time instead of on the first request.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
)

var containerKinds = map[string]bool{
	"section": true, "form": true, "when": true, "unless": true, "each": true,
}

// Validate reports every structural problem found in doc.
func Validate(doc *dto.Document) error {
	if doc == nil {
		return fmt.Errorf("empty document")
	}
	v := &walker{}
	v.nodes("nodes", doc.Nodes, false)

	if len(v.errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(v.errors), strings.Join(v.errors, "\n- "))
	}
	return nil
}

type walker struct {
	errors []string
}

func (w *walker) fail(path, format string, args ...any) {
	w.errors = append(w.errors, path+": "+fmt.Sprintf(format, args...))
}

func (w *walker) nodes(path string, nodes []dto.NodeSpec, inForm bool) {
	for i, n := range nodes {
		w.node(fmt.Sprintf("%s[%d]", path, i), n, inForm)
	}
}

func (w *walker) node(path string, n dto.NodeSpec, inForm bool) {
	kind, _, count := n.Kind()
	switch {
	case count == 0:
		w.fail(path, "missing kind (one of field, textarea, toggle, choice, multichoice, action, section, display, raw, form, when, unless, each)")
		return
	case count > 1:
		w.fail(path, "expected exactly one kind key, found %d", count)
		return
	}

	if (kind == "choice" || kind == "multichoice") && len(n.Choices) == 0 {
		w.fail(path, "%s requires choices", kind)
	}
	if kind == "form" && inForm {
		w.fail(path, "forms cannot be nested")
	}
	if len(n.Nodes) > 0 && !containerKinds[kind] {
		w.fail(path, "%s cannot have child nodes", kind)
	}
	if len(n.Do) > 0 && kind != "action" {
		w.fail(path, "only actions have 'do'")
	}
	if len(n.OnSubmit) > 0 && kind != "form" {
		w.fail(path, "only forms have 'on_submit'")
	}

	w.ops(path+".do", n.Do)
	w.ops(path+".on_submit", n.OnSubmit)
	w.nodes(path+".nodes", n.Nodes, inForm || kind == "form")
}

func (w *walker) ops(path string, ops []dto.OpSpec) {
	for i, o := range ops {
		p := fmt.Sprintf("%s[%d]", path, i)
		op, _, count := o.Op()
		switch {
		case count == 0:
			w.fail(p, "missing op (one of set, append, clear, toggle, copy, remove)")
			continue
		case count > 1:
			w.fail(p, "expected exactly one op key, found %d", count)
			continue
		}

		switch op {
		case "set":
			if o.Value == nil {
				w.fail(p, "set requires value")
			}
		case "append":
			if o.Value == nil && o.From == "" {
				w.fail(p, "append requires value or from")
			}
		case "copy":
			if o.From == "" {
				w.fail(p, "copy requires from")
			}
		case "remove":
			if o.Index == "" && o.Value == nil {
				w.fail(p, "remove requires index or value")
			}
		}
	}
}
