// Package dto holds the raw shapes of declarative definition documents, as decoded
// from YAML before validation and compilation.
package dto

// Document is the top level of a definition file.
type Document struct {
	Title string `json:"title" mapstructure:"title"`
	// Submit labels the completion control of one-shot runs.
	Submit string     `json:"submit,omitempty" mapstructure:"submit"`
	Nodes  []NodeSpec `json:"nodes" mapstructure:"nodes"`
}

// NodeSpec is one node. Exactly one of the kind keys (field, toggle, action, ...) is
// set; its value is the bound key, the label or the gating key depending on the kind.
type NodeSpec struct {
	Field       string `json:"field,omitempty" mapstructure:"field"`
	TextArea    string `json:"textarea,omitempty" mapstructure:"textarea"`
	Toggle      string `json:"toggle,omitempty" mapstructure:"toggle"`
	Choice      string `json:"choice,omitempty" mapstructure:"choice"`
	MultiChoice string `json:"multichoice,omitempty" mapstructure:"multichoice"`
	Action      string `json:"action,omitempty" mapstructure:"action"`
	Section     string `json:"section,omitempty" mapstructure:"section"`
	Display     string `json:"display,omitempty" mapstructure:"display"`
	Raw         string `json:"raw,omitempty" mapstructure:"raw"`
	Form        string `json:"form,omitempty" mapstructure:"form"`
	When        string `json:"when,omitempty" mapstructure:"when"`
	Unless      string `json:"unless,omitempty" mapstructure:"unless"`
	Each        string `json:"each,omitempty" mapstructure:"each"`

	// Rendering options
	Label       string   `json:"label,omitempty" mapstructure:"label"`
	Placeholder string   `json:"placeholder,omitempty" mapstructure:"placeholder"`
	Default     any      `json:"default,omitempty" mapstructure:"default"`
	Choices     []string `json:"choices,omitempty" mapstructure:"choices"`
	Class       string   `json:"class,omitempty" mapstructure:"class"`
	Rows        int      `json:"rows,omitempty" mapstructure:"rows"`
	SubmitLabel string   `json:"submit_label,omitempty" mapstructure:"submit_label"`

	Nodes    []NodeSpec `json:"nodes,omitempty" mapstructure:"nodes"`
	Do       []OpSpec   `json:"do,omitempty" mapstructure:"do"`
	OnSubmit []OpSpec   `json:"on_submit,omitempty" mapstructure:"on_submit"`
}

// OpSpec is one step of an action or commit handler. Exactly one of the op keys
// (set, append, clear, toggle, copy, remove) names the target key.
type OpSpec struct {
	Set    string `json:"set,omitempty" mapstructure:"set"`
	Append string `json:"append,omitempty" mapstructure:"append"`
	Clear  string `json:"clear,omitempty" mapstructure:"clear"`
	Toggle string `json:"toggle,omitempty" mapstructure:"toggle"`
	Copy   string `json:"copy,omitempty" mapstructure:"copy"`
	Remove string `json:"remove,omitempty" mapstructure:"remove"`

	Value any    `json:"value,omitempty" mapstructure:"value"`
	From  string `json:"from,omitempty" mapstructure:"from"`
	To    string `json:"to,omitempty" mapstructure:"to"`
	Index string `json:"index,omitempty" mapstructure:"index"`
}

// Kind returns the kind key set on n and its argument, or "" when none is set.
// count reports how many kind keys are set.
func (n NodeSpec) Kind() (kind, arg string, count int) {
	for _, kv := range [][2]string{
		{"field", n.Field}, {"textarea", n.TextArea}, {"toggle", n.Toggle},
		{"choice", n.Choice}, {"multichoice", n.MultiChoice}, {"action", n.Action},
		{"section", n.Section}, {"display", n.Display}, {"raw", n.Raw},
		{"form", n.Form}, {"when", n.When}, {"unless", n.Unless}, {"each", n.Each},
	} {
		if kv[1] != "" {
			if count == 0 {
				kind, arg = kv[0], kv[1]
			}
			count++
		}
	}
	return kind, arg, count
}

// Op returns the op key set on o and its target, with the number of op keys set.
func (o OpSpec) Op() (op, target string, count int) {
	for _, kv := range [][2]string{
		{"set", o.Set}, {"append", o.Append}, {"clear", o.Clear},
		{"toggle", o.Toggle}, {"copy", o.Copy}, {"remove", o.Remove},
	} {
		if kv[1] != "" {
			if count == 0 {
				op, target = kv[0], kv[1]
			}
			count++
		}
	}
	return op, target, count
}
