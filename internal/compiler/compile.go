package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// vars are loop variables visible to interpolation (item, index).
type vars map[string]string

// Compile returns the Definition described by doc. doc must have been validated.
func Compile(doc *dto.Document) dsl.Definition {
	return func(b *dsl.Builder) {
		if doc.Title != "" {
			b.Title(interpolate(doc.Title, b.Store(), nil))
		}
		emit(b, doc.Nodes, nil)
	}
}

func emit(b *dsl.Builder, nodes []dto.NodeSpec, v vars) {
	for _, n := range nodes {
		emitNode(b, n, v)
	}
}

func emitNode(b *dsl.Builder, n dto.NodeSpec, v vars) {
	kind, arg, _ := n.Kind()
	opts := options(n)

	switch kind {
	case "field":
		b.Field(arg, opts...)
	case "textarea":
		b.TextArea(arg, opts...)
	case "toggle":
		b.Toggle(arg, opts...)
	case "choice":
		b.Choice(arg, n.Choices, opts...)
	case "multichoice":
		b.MultiChoice(arg, n.Choices, opts...)
	case "action":
		b.Action(interpolate(arg, b.Store(), v), handler(n.Do, v), opts...)
	case "display":
		b.Display(interpolate(arg, b.Store(), v), opts...)
	case "raw":
		b.Raw(interpolate(arg, b.Store(), v))
	case "section":
		b.Section(interpolate(arg, b.Store(), v), func(b *dsl.Builder) { emit(b, n.Nodes, v) }, opts...)
	case "form":
		if len(n.OnSubmit) > 0 {
			opts = append(opts, dsl.OnSubmit(handler(n.OnSubmit, v)))
		}
		b.Form(arg, func(b *dsl.Builder) { emit(b, n.Nodes, v) }, opts...)
	case "when":
		if b.Store().Truthy(arg) {
			emit(b, n.Nodes, v)
		}
	case "unless":
		if !b.Store().Truthy(arg) {
			emit(b, n.Nodes, v)
		}
	case "each":
		for i, item := range b.Store().List(arg) {
			emit(b, n.Nodes, v.with(item, i))
		}
	}
}

func options(n dto.NodeSpec) []dsl.Option {
	var opts []dsl.Option
	if n.Label != "" {
		opts = append(opts, dsl.Label(n.Label))
	}
	if n.Placeholder != "" {
		opts = append(opts, dsl.Placeholder(n.Placeholder))
	}
	if n.Default != nil {
		opts = append(opts, dsl.Default(normalizeDefault(n.Default)))
	}
	if n.Class != "" {
		opts = append(opts, dsl.Class(n.Class))
	}
	if n.Rows > 0 {
		opts = append(opts, dsl.Rows(n.Rows))
	}
	if n.SubmitLabel != "" {
		opts = append(opts, dsl.SubmitLabel(n.SubmitLabel))
	}
	return opts
}

// normalizeDefault turns YAML sequences into []string so multichoice defaults apply.
func normalizeDefault(v any) any {
	return domain.Store{"v": v}.Normalize()["v"]
}

// handler runs ops in order against the Store. The loop variables of the
// declaring iteration are captured, so "remove: items, index: '{{index}}'" targets
// the row the button was rendered in.
func handler(ops []dto.OpSpec, v vars) domain.Handler {
	if len(ops) == 0 {
		return nil
	}
	return func(s domain.Store) error {
		for _, o := range ops {
			if err := apply(s, o, v); err != nil {
				return err
			}
		}
		return nil
	}
}

func apply(s domain.Store, o dto.OpSpec, v vars) error {
	op, target, _ := o.Op()
	switch op {
	case "set":
		s[target] = value(o.Value, s, v)
	case "append":
		var item string
		if o.From != "" {
			item = lookup(s, v, o.From)
		} else {
			item = fmt.Sprint(value(o.Value, s, v))
		}
		if item != "" {
			s[target] = append(slices.Clone(s.List(target)), item)
		}
	case "clear":
		s[target] = zero(s[target])
	case "toggle":
		s[target] = !s.Bool(target)
	case "copy":
		s[target] = get(s, v, o.From)
	case "remove":
		list := slices.Clone(s.List(target))
		if o.Index != "" {
			i, err := strconv.Atoi(interpolate(o.Index, s, v))
			if err != nil || i < 0 || i >= len(list) {
				return fmt.Errorf("remove %s: index %q out of range", target, o.Index)
			}
			list = slices.Delete(list, i, i+1)
		} else {
			want := fmt.Sprint(value(o.Value, s, v))
			list = slices.DeleteFunc(list, func(e string) bool { return e == want })
		}
		s[target] = list
	default:
		return fmt.Errorf("unknown op %q", op)
	}
	return nil
}

// value interpolates string values and keeps booleans typed.
func value(raw any, s domain.Store, v vars) any {
	if str, ok := raw.(string); ok {
		return interpolate(str, s, v)
	}
	return raw
}

func zero(cur any) any {
	switch cur.(type) {
	case bool:
		return false
	case []string, []any:
		return []string{}
	case map[string]any:
		return map[string]any{}
	}
	return ""
}

// get resolves a key, a loop variable or a dotted path into a form buffer.
func get(s domain.Store, v vars, path string) any {
	if val, ok := v[path]; ok {
		return val
	}
	if head, field, ok := strings.Cut(path, "."); ok {
		if val, ok := s.Map(head)[field]; ok {
			return domain.Store{field: val}.Clone()[field]
		}
		return nil
	}
	return domain.Store{path: s[path]}.Clone()[path]
}

func lookup(s domain.Store, v vars, path string) string {
	switch val := get(s, v, path).(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func interpolate(text string, s domain.Store, v vars) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		return lookup(s, v, placeholder.FindStringSubmatch(m)[1])
	})
}

func (v vars) with(item string, index int) vars {
	out := make(vars, len(v)+2)
	for k, val := range v {
		out[k] = val
	}
	out["item"] = item
	out["index"] = strconv.Itoa(index)
	return out
}
