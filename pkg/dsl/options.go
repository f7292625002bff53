package dsl

import "github.com/aretw0/arbor/pkg/domain"

// Option configures a node at declaration time.
type Option func(*domain.Node)

func apply(n *domain.Node, opts []Option) {
	for _, opt := range opts {
		opt(n)
	}
}

// Label sets the visible label.
func Label(label string) Option {
	return func(n *domain.Node) {
		n.Label = label
	}
}

// Placeholder sets the input placeholder.
func Placeholder(text string) Option {
	return func(n *domain.Node) {
		n.Options.Placeholder = text
	}
}

// Default sets the value hydrated into the Store when the key is missing.
func Default(v any) Option {
	return func(n *domain.Node) {
		n.Options.Default = v
	}
}

// Choices sets the selectable values of a choice node.
func Choices(choices ...string) Option {
	return func(n *domain.Node) {
		n.Options.Choices = choices
	}
}

// Class adds a CSS class hint for the renderer.
func Class(class string) Option {
	return func(n *domain.Node) {
		n.Options.Class = class
	}
}

// Rows sets the visible height of a text area.
func Rows(rows int) Option {
	return func(n *domain.Node) {
		n.Options.Rows = rows
	}
}

// SubmitLabel sets the label of a scoped form's submit button.
func SubmitLabel(label string) Option {
	return func(n *domain.Node) {
		n.Options.SubmitLabel = label
	}
}

// OnSubmit attaches the commit handler of a scoped form. It runs after the buffer
// has been flushed into the Store.
func OnSubmit(h domain.Handler) Option {
	return func(n *domain.Node) {
		n.OnSubmit = h
	}
}
