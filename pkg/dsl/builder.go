package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ident"
)

// Definition is the Definition Block: an explicit function from the Store (exposed
// through the Builder) to a Component Tree. It is re-invoked on every request.
type Definition func(b *Builder)

var (
	// ErrNestedForm is reported when a scoped form is declared inside another one.
	ErrNestedForm = errors.New("scoped forms cannot be nested")
	// ErrEmptyKey is reported when an interactive node is declared without a key.
	ErrEmptyKey = errors.New("interactive node requires a key")
)

// Builder is the context a Definition runs against. It carries the Store, the
// tree under construction and the identifier assigner for this build.
type Builder struct {
	store  domain.Store
	ids    *ident.Assigner
	title  string
	frames [][]*domain.Node

	scope  string
	buffer map[string]any

	err error
}

// BuildOption configures a single build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	prefix string
	title  string
}

// WithPrefix prepends prefix to every action identifier (used when several apps
// share one listener).
func WithPrefix(prefix string) BuildOption {
	return func(c *buildConfig) {
		c.prefix = prefix
	}
}

// WithTitle sets the default tree title; the Definition may override it.
func WithTitle(title string) BuildOption {
	return func(c *buildConfig) {
		c.title = title
	}
}

// Build runs def against store and returns the resulting tree.
// Missing keys of every interactive node visited are defaulted in store as a side
// effect. A panic inside def is returned as an error.
func Build(def Definition, store domain.Store, opts ...BuildOption) (tree *domain.Tree, err error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if store == nil {
		return nil, fmt.Errorf("build: nil store")
	}

	b := &Builder{
		store:  store,
		ids:    ident.New(cfg.prefix),
		title:  cfg.title,
		frames: [][]*domain.Node{nil},
	}

	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = fmt.Errorf("definition panicked: %v", r)
		}
	}()

	if def != nil {
		def(b)
	}
	if b.err != nil {
		return nil, b.err
	}
	return domain.NewTree(b.title, b.frames[0]), nil
}

// Store exposes the session Store. Writes are visible to the rest of the build.
func (b *Builder) Store() domain.Store {
	return b.store
}

// Scope returns the name of the enclosing scoped form, or "".
func (b *Builder) Scope() string {
	return b.scope
}

// Title sets the document title.
func (b *Builder) Title(title string) {
	b.title = title
}

// Get returns the value bound to key in the current scope.
func (b *Builder) Get(key string) any {
	return b.target()[key]
}

// String returns the string bound to key in the current scope.
func (b *Builder) String(key string) string {
	v, _ := b.Get(key).(string)
	return v
}

// Bool returns the bool bound to key in the current scope.
func (b *Builder) Bool(key string) bool {
	v, _ := b.Get(key).(bool)
	return v
}

// List returns the list bound to key in the current scope.
func (b *Builder) List(key string) []string {
	return domain.Store(b.target()).List(key)
}

// Default sets key when absent (the store[:x] ||= v idiom) and returns the current value.
func (b *Builder) Default(key string, v any) any {
	return domain.Store(b.target()).Default(key, v)
}

// Field declares a single-line text input bound to key.
func (b *Builder) Field(key string, opts ...Option) {
	b.bind(domain.KindField, key, opts)
}

// TextArea declares a multi-line text input bound to key.
func (b *Builder) TextArea(key string, opts ...Option) {
	b.bind(domain.KindTextArea, key, opts)
}

// Toggle declares a checkbox bound to key.
func (b *Builder) Toggle(key string, opts ...Option) {
	b.bind(domain.KindToggle, key, opts)
}

// Choice declares a single select over choices.
func (b *Builder) Choice(key string, choices []string, opts ...Option) {
	b.bind(domain.KindChoice, key, append([]Option{Choices(choices...)}, opts...))
}

// MultiChoice declares a list-valued select over choices.
func (b *Builder) MultiChoice(key string, choices []string, opts ...Option) {
	b.bind(domain.KindMultiChoice, key, append([]Option{Choices(choices...)}, opts...))
}

// Action declares a button. The returned identifier addresses it in later requests.
func (b *Builder) Action(label string, h domain.Handler, opts ...Option) string {
	n := &domain.Node{Kind: domain.KindAction, Label: label, Scope: b.scope, Handler: h}
	apply(n, opts)
	n.ID = b.ids.Next(label)
	b.add(n)
	return n.ID
}

// Display declares escaped text.
func (b *Builder) Display(text string, opts ...Option) {
	n := &domain.Node{Kind: domain.KindDisplay, Text: text, Scope: b.scope}
	apply(n, opts)
	b.add(n)
}

// Raw declares structured content that bypasses escaping.
func (b *Builder) Raw(markup string) {
	b.add(&domain.Node{Kind: domain.KindRaw, Text: markup, Scope: b.scope})
}

// Section groups the nodes declared by fn under a container.
func (b *Builder) Section(label string, fn func(*Builder), opts ...Option) {
	n := &domain.Node{Kind: domain.KindContainer, Label: label, Scope: b.scope}
	apply(n, opts)
	n.Children = b.nest(fn)
	b.add(n)
}

// Form declares a scoped form named name. Fields declared by fn bind inside the
// buffer store[name]; their values reach the Store only on submit.
func (b *Builder) Form(name string, fn func(*Builder), opts ...Option) {
	if b.scope != "" {
		b.fail(fmt.Errorf("%w: %q inside %q", ErrNestedForm, name, b.scope))
		return
	}
	if name == "" {
		b.fail(fmt.Errorf("%w: form", ErrEmptyKey))
		return
	}

	n := &domain.Node{Kind: domain.KindForm, Key: name}
	apply(n, opts)

	buf, ok := b.store[name].(map[string]any)
	if !ok {
		buf = domain.DefaultFor(domain.KindForm, n.Options).(map[string]any)
		b.store[name] = buf
	}

	b.scope, b.buffer = name, buf
	n.Children = b.nest(fn)
	b.scope, b.buffer = "", nil

	b.add(n)
}

func (b *Builder) bind(kind domain.Kind, key string, opts []Option) {
	if key == "" {
		b.fail(fmt.Errorf("%w: %s", ErrEmptyKey, kind))
		return
	}
	n := &domain.Node{Kind: kind, Key: key, Label: key, Scope: b.scope}
	apply(n, opts)

	target := b.target()
	if _, ok := target[key]; !ok {
		target[key] = domain.DefaultFor(kind, n.Options)
	}
	b.add(n)
}

func (b *Builder) target() map[string]any {
	if b.buffer != nil {
		return b.buffer
	}
	return b.store
}

func (b *Builder) nest(fn func(*Builder)) []*domain.Node {
	b.frames = append(b.frames, nil)
	if fn != nil {
		fn(b)
	}
	top := len(b.frames) - 1
	children := b.frames[top]
	b.frames = b.frames[:top]
	return children
}

func (b *Builder) add(n *domain.Node) {
	top := len(b.frames) - 1
	b.frames[top] = append(b.frames[top], n)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
