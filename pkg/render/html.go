package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/aretw0/arbor/pkg/coerce"
	"github.com/aretw0/arbor/pkg/domain"
)

const (
	htmxScript   = "https://unpkg.com/htmx.org@1.9.12"
	alpineScript = "https://unpkg.com/alpinejs@3.14.1/dist/cdn.min.js"
)

// HTML renders trees for browsers driven by htmx (transport and partial replacement)
// and Alpine.js (client-local mirrored values).
//
// Every bound value is escaped; only KindRaw nodes are emitted verbatim.
type HTML struct{}

// NewHTML creates the HTML adapter.
func NewHTML() *HTML {
	return &HTML{}
}

func (h *HTML) ContentType() string {
	return "text/html; charset=utf-8"
}

func (h *HTML) Render(w io.Writer, p Page) error {
	var b strings.Builder
	if p.Mode == Full {
		fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", esc(p.title()))
		fmt.Fprintf(&b, "<script src=\"%s\"></script>\n<script defer src=\"%s\"></script>\n</head>\n<body>\n", htmxScript, alpineScript)
	}
	if err := h.anchor(&b, p); err != nil {
		return err
	}
	if p.Mode == Full {
		b.WriteString("</body>\n</html>\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (h *HTML) anchor(b *strings.Builder, p Page) error {
	mirror := make(map[string]any)
	if p.Tree != nil {
		for _, n := range p.Tree.Bindings() {
			mirror[n.Key] = p.Store[n.Key]
		}
	}

	fmt.Fprintf(b, "<form id=\"%s\" x-data=\"%s\" hx-post=\"%s\" hx-trigger=\"change\" hx-swap=\"none\" onsubmit=\"return false\">\n",
		esc(p.anchor()), esc(mirrorData(mirror)), esc(p.BasePath+"/update"))
	if p.Error != "" {
		fmt.Fprintf(b, "<div class=\"arbor-error\" role=\"alert\">%s</div>\n", esc(p.Error))
	}
	if p.Tree != nil && p.Tree.Root != nil {
		for _, n := range p.Tree.Root.Children {
			if err := h.node(b, p, n); err != nil {
				return err
			}
		}
	}
	if p.Submit != "" {
		fmt.Fprintf(b, "<button type=\"button\" class=\"arbor-submit\" hx-post=\"%s\" hx-include=\"#%s\" hx-target=\"body\" hx-swap=\"innerHTML\">%s</button>\n",
			esc(p.BasePath+"/submit"), esc(p.anchor()), esc(p.Submit))
	}
	b.WriteString("</form>\n")
	return nil
}

func (h *HTML) node(b *strings.Builder, p Page, n *domain.Node) error {
	switch n.Kind {
	case domain.KindContainer:
		fmt.Fprintf(b, "<section%s>\n", classAttr(n))
		if n.Label != "" {
			fmt.Fprintf(b, "<h2>%s</h2>\n", esc(n.Label))
		}
		for _, c := range n.Children {
			if err := h.node(b, p, c); err != nil {
				return err
			}
		}
		b.WriteString("</section>\n")

	case domain.KindField:
		fmt.Fprintf(b, "<label>%s <input type=\"text\" %s value=\"%s\"%s></label>\n",
			esc(n.Label), bindAttrs(n), esc(stringValue(valueOf(p.Store, n))), placeholderAttr(n))

	case domain.KindTextArea:
		rows := n.Options.Rows
		if rows <= 0 {
			rows = 3
		}
		fmt.Fprintf(b, "<label>%s <textarea %s rows=\"%d\"%s>%s</textarea></label>\n",
			esc(n.Label), bindAttrs(n), rows, placeholderAttr(n), esc(stringValue(valueOf(p.Store, n))))

	case domain.KindToggle:
		checked := ""
		if v, _ := valueOf(p.Store, n).(bool); v {
			checked = " checked"
		}
		fmt.Fprintf(b, "<label><input type=\"checkbox\" %s%s> %s</label>\n", bindAttrs(n), checked, esc(n.Label))

	case domain.KindChoice:
		current := stringValue(valueOf(p.Store, n))
		fmt.Fprintf(b, "<label>%s <select %s>\n", esc(n.Label), bindAttrs(n))
		for _, c := range n.Options.Choices {
			fmt.Fprintf(b, "<option value=\"%s\"%s>%s</option>\n", esc(c), selected(c == current), esc(c))
		}
		b.WriteString("</select></label>\n")

	case domain.KindMultiChoice:
		current := listValue(valueOf(p.Store, n))
		// The empty marker keeps the key present in the body when nothing is selected.
		fmt.Fprintf(b, "<input type=\"hidden\" name=\"%s\" value=\"\">\n", esc(coerce.FieldName(n.Scope, n.Key)))
		fmt.Fprintf(b, "<label>%s <select multiple %s>\n", esc(n.Label), bindAttrs(n))
		for _, c := range n.Options.Choices {
			fmt.Fprintf(b, "<option value=\"%s\"%s>%s</option>\n", esc(c), selected(contains(current, c)), esc(c))
		}
		b.WriteString("</select></label>\n")

	case domain.KindAction:
		include := "#" + p.anchor()
		if n.Scope != "" {
			include = "closest fieldset"
		}
		fmt.Fprintf(b, "<button type=\"button\"%s hx-post=\"%s\" hx-target=\"#%s\" hx-swap=\"outerHTML\" hx-include=\"%s\">%s</button>\n",
			classAttr(n), esc(p.BasePath+"/action/"+n.ID), esc(p.anchor()), esc(include), esc(n.Label))

	case domain.KindDisplay:
		fmt.Fprintf(b, "<p%s>%s</p>\n", classAttr(n), esc(n.Text))

	case domain.KindRaw:
		b.WriteString(n.Text)
		b.WriteString("\n")

	case domain.KindForm:
		fmt.Fprintf(b, "<fieldset%s data-scope=\"%s\" x-data=\"%s\">\n",
			classAttr(n), esc(n.Key), esc(mirrorData(p.Store.Map(n.Key))))
		if n.Label != "" && n.Label != n.Key {
			fmt.Fprintf(b, "<legend>%s</legend>\n", esc(n.Label))
		}
		for _, c := range n.Children {
			if err := h.node(b, p, c); err != nil {
				return err
			}
		}
		label := n.Options.SubmitLabel
		if label == "" {
			label = "Submit"
		}
		fmt.Fprintf(b, "<button type=\"button\" hx-post=\"%s\" hx-include=\"closest fieldset\" hx-target=\"#%s\" hx-swap=\"outerHTML\">%s</button>\n",
			esc(p.BasePath+"/form/"+n.Key), esc(p.anchor()), esc(label))
		b.WriteString("</fieldset>\n")

	default:
		return ErrUnknownKind{Kind: n.Kind}
	}
	return nil
}

// bindAttrs emits the submission name and the reactive binding to the client mirror.
// Inside a scoped form the mirror is the fieldset's own x-data object.
func bindAttrs(n *domain.Node) string {
	return fmt.Sprintf("name=\"%s\" x-model=\"%s\"%s",
		esc(coerce.FieldName(n.Scope, n.Key)),
		esc("fields['"+template.JSEscapeString(n.Key)+"']"),
		classAttr(n))
}

func mirrorData(values map[string]any) string {
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"fields": values})
	if err != nil {
		return "{\"fields\":{}}"
	}
	return string(data)
}

func classAttr(n *domain.Node) string {
	if n.Options.Class == "" {
		return ""
	}
	return " class=\"" + esc(n.Options.Class) + "\""
}

func placeholderAttr(n *domain.Node) string {
	if n.Options.Placeholder == "" {
		return ""
	}
	return " placeholder=\"" + esc(n.Options.Placeholder) + "\""
}

func selected(ok bool) string {
	if ok {
		return " selected"
	}
	return ""
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}
