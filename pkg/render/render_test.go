package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeter(b *dsl.Builder) {
	b.Title("Greeter")
	b.Field("name", dsl.Placeholder("Your name"))
	b.Toggle("agree")
	b.MultiChoice("tags", []string{"go", "web"})
	b.Action("Greet", func(s domain.Store) error {
		s["greeting"] = "Hello, " + s.String("name")
		return nil
	})
	if g := b.String("greeting"); g != "" {
		b.Display(g)
	}
	b.Form("profile", func(b *dsl.Builder) {
		b.Field("first")
		b.Choice("lang", []string{"en", "pt"})
	}, dsl.SubmitLabel("Save"))
}

func page(t *testing.T, store domain.Store, mode render.Mode) render.Page {
	t.Helper()
	tree, err := dsl.Build(greeter, store)
	require.NoError(t, err)
	return render.Page{Tree: tree, Store: store, Mode: mode, BasePath: "/apps/greeter"}
}

func renderString(t *testing.T, a render.Adapter, p render.Page) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, a.Render(&buf, p))
	return buf.String()
}

func TestHTML_FullDocument(t *testing.T) {
	out := renderString(t, render.NewHTML(), page(t, domain.NewStore(), render.Full))

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Greeter</title>")
	assert.Contains(t, out, "htmx.org")
	assert.Contains(t, out, "alpinejs")
	assert.Contains(t, out, `id="arbor-main"`)
	assert.Contains(t, out, `hx-post="/apps/greeter/update"`)
	assert.Contains(t, out, `hx-post="/apps/greeter/action/greet_1"`)
	assert.Contains(t, out, `hx-target="#arbor-main"`)
	assert.Contains(t, out, `placeholder="Your name"`)
}

func TestHTML_PartialIsAnchorOnly(t *testing.T) {
	out := renderString(t, render.NewHTML(), page(t, domain.NewStore(), render.Partial))

	assert.True(t, strings.HasPrefix(out, `<form id="arbor-main"`))
	assert.NotContains(t, out, "<html>")
	assert.NotContains(t, out, "<script")
}

func TestHTML_EscapesBoundValues(t *testing.T) {
	store := domain.Store{"name": `<script>alert("x")</script>`, "greeting": "<b>hi</b>"}
	out := renderString(t, render.NewHTML(), page(t, store, render.Partial))

	assert.NotContains(t, out, "<script>alert")
	assert.NotContains(t, out, "<b>hi</b>")
	assert.Contains(t, out, "&lt;b&gt;hi&lt;/b&gt;")
}

func TestHTML_RawBypassesEscaping(t *testing.T) {
	store := domain.NewStore()
	tree, err := dsl.Build(func(b *dsl.Builder) { b.Raw("<hr>") }, store)
	require.NoError(t, err)

	out := renderString(t, render.NewHTML(), render.Page{Tree: tree, Store: store, Mode: render.Partial})
	assert.Contains(t, out, "<hr>\n")
}

func TestHTML_BoundState(t *testing.T) {
	store := domain.Store{"agree": true, "tags": []string{"web"}}
	out := renderString(t, render.NewHTML(), page(t, store, render.Partial))

	assert.Contains(t, out, `name="agree" x-model="fields[&#39;agree&#39;]" checked>`)
	assert.Contains(t, out, `<option value="web" selected>web</option>`)
	assert.Contains(t, out, `<option value="go">go</option>`)
	assert.Contains(t, out, `<input type="hidden" name="tags" value="">`, "multi select needs an empty marker")
}

func TestHTML_ScopedForm(t *testing.T) {
	store := domain.Store{"profile": map[string]any{"first": "Ada"}}
	out := renderString(t, render.NewHTML(), page(t, store, render.Partial))

	assert.Contains(t, out, `data-scope="profile"`)
	assert.Contains(t, out, `name="profile[first]"`)
	assert.Contains(t, out, `value="Ada"`)
	assert.Contains(t, out, `hx-post="/apps/greeter/form/profile"`)
	assert.Contains(t, out, ">Save</button>")
}

func TestHTML_ErrorBanner(t *testing.T) {
	p := page(t, domain.NewStore(), render.Partial)
	p.Error = "greet_1 failed"
	out := renderString(t, render.NewHTML(), p)
	assert.Contains(t, out, `<div class="arbor-error" role="alert">greet_1 failed</div>`)
}

func TestHTML_CompletionControl(t *testing.T) {
	p := page(t, domain.NewStore(), render.Full)
	assert.NotContains(t, renderString(t, render.NewHTML(), p), "/submit", "long-running pages have no completion control")

	p.Submit = "Done"
	out := renderString(t, render.NewHTML(), p)
	assert.Contains(t, out, `<button type="button" class="arbor-submit" hx-post="/apps/greeter/submit" hx-include="#arbor-main"`)
	assert.Contains(t, out, ">Done</button>\n</form>")
}

func TestAdapters_UnknownKind(t *testing.T) {
	tree := domain.NewTree("t", []*domain.Node{{Kind: domain.Kind(42)}})
	p := render.Page{Tree: tree, Store: domain.NewStore()}

	for _, a := range []render.Adapter{render.NewHTML(), render.NewJSON(), render.NewMarkdown()} {
		var buf bytes.Buffer
		err := a.Render(&buf, p)
		var unknown render.ErrUnknownKind
		assert.ErrorAs(t, err, &unknown, "%T", a)
	}
}

func TestJSON_View(t *testing.T) {
	store := domain.Store{"name": "Ada", "greeting": "Hello, Ada"}
	out := renderString(t, render.NewJSON(), page(t, store, render.Full))

	var view render.PageView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Greeter", view.Title)
	require.NotEmpty(t, view.Nodes)
	assert.Equal(t, "field", view.Nodes[0].Kind)
	assert.Equal(t, "Ada", view.Nodes[0].Value)
	assert.Equal(t, "greet_1", view.Nodes[3].ID)
	assert.Equal(t, "Hello, Ada", view.Nodes[4].Text)
	assert.Equal(t, "form", view.Nodes[5].Kind)
	assert.Len(t, view.Nodes[5].Children, 2)
}

func TestMarkdown(t *testing.T) {
	store := domain.Store{"name": "Ada", "agree": true}
	out := renderString(t, render.NewMarkdown(), page(t, store, render.Full))

	assert.Contains(t, out, "# Greeter\n")
	assert.Contains(t, out, "- **name**: `Ada`")
	assert.Contains(t, out, "- [x] agree")
	assert.Contains(t, out, "- [Greet] (`greet_1`)")
	assert.Contains(t, out, "- [Save] (form `profile`)")
}

func TestContentTypes(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", render.NewHTML().ContentType())
	assert.Equal(t, "application/json", render.NewJSON().ContentType())
	assert.Equal(t, "text/markdown; charset=utf-8", render.NewMarkdown().ContentType())
}
