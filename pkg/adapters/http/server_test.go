package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeter(b *dsl.Builder) {
	b.Field("name")
	b.Action("Greet", func(s domain.Store) error {
		s["greeting"] = "Hello, " + s.String("name")
		return nil
	})
	b.Action("Fail", func(domain.Store) error {
		return errors.New("disk full")
	})
	if g := b.String("greeting"); g != "" {
		b.Display(g)
	}
	b.Form("profile", func(b *dsl.Builder) {
		b.Field("first")
	})
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == arborhttp.SessionCookie {
			c.cookie = ck
		}
	}
	return w
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h}
}

func TestGetPage_IssuesSession(t *testing.T) {
	srv := arborhttp.NewServer(arbor.New("greeter", greeter))
	c := newClient(t, srv)

	w := c.do("GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.NotNil(t, c.cookie)
	assert.Len(t, c.cookie.Value, 32)
	assert.True(t, c.cookie.HttpOnly)
	assert.Equal(t, "/", c.cookie.Path)

	body := w.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `hx-post="/update"`)
	assert.Contains(t, body, `hx-post="/action/greet_1"`)
	assert.Contains(t, body, `hx-post="/form/profile"`)
	assert.NotContains(t, body, `hx-post="/submit"`)

	first := c.cookie.Value
	c.do("GET", "/", nil)
	assert.Equal(t, first, c.cookie.Value, "existing session is reused")
}

func TestSyncThenAct(t *testing.T) {
	c := newClient(t, arborhttp.NewServer(arbor.New("greeter", greeter)))
	c.do("GET", "/", nil)

	w := c.do("POST", "/update", url.Values{"name": {"Alice"}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.do("POST", "/action/greet_1", url.Values{"name": {"Alice"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Hello, Alice")
	assert.NotContains(t, body, "<!DOCTYPE html>", "actions render the anchor only")
	assert.Empty(t, w.Header().Get("X-Arbor-Unresolved"))
}

func TestAct_Unresolved(t *testing.T) {
	c := newClient(t, arborhttp.NewServer(arbor.New("greeter", greeter)))
	c.do("GET", "/", nil)

	w := c.do("POST", "/action/greet_9", url.Values{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "greet_9", w.Header().Get("X-Arbor-Unresolved"))
	assert.NotContains(t, w.Body.String(), "Hello,")
}

func TestAct_HandlerFailureShowsBanner(t *testing.T) {
	c := newClient(t, arborhttp.NewServer(arbor.New("greeter", greeter)))
	c.do("GET", "/", nil)

	w := c.do("POST", "/action/fail_2", url.Values{"name": {"Bob"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="arbor-error"`)
	assert.Contains(t, w.Body.String(), "disk full")

	w = c.do("POST", "/action/greet_1", url.Values{})
	assert.Contains(t, w.Body.String(), "Hello, Bob", "coercions of the failed request stay committed")
}

func TestSubmitForm(t *testing.T) {
	app := arbor.New("greeter", greeter)
	c := newClient(t, arborhttp.NewServer(app))
	c.do("GET", "/", nil)

	w := c.do("POST", "/form/profile", url.Values{"profile[first]": {"Ada"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Ada"`)

	store, err := app.Sessions().Load(context.Background(), c.cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "Ada", store.Map("profile")["first"])
}

func TestComplete_OneShot(t *testing.T) {
	app := arbor.New("greeter", greeter, arbor.WithTitle("Say <hi>"))
	c := newClient(t, arborhttp.NewServer(app))
	c.do("GET", "/", nil)

	w := c.do("POST", "/submit", url.Values{"name": {"Bob"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Submitted")
	assert.Contains(t, w.Body.String(), "Say &lt;hi&gt;")

	select {
	case store := <-app.Done():
		assert.Equal(t, "Bob", store["name"])
	case <-time.After(time.Second):
		t.Fatal("completion not delivered")
	}

	w = c.do("POST", "/submit", url.Values{"name": {"Eve"}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

var submitControl = regexp.MustCompile(`class="arbor-submit" hx-post="([^"]+)"`)

func TestComplete_FromRenderedControl(t *testing.T) {
	app := arbor.New("pair", func(b *dsl.Builder) {
		b.Field("a")
		b.Field("b")
	})
	c := newClient(t, arborhttp.NewServer(app, arborhttp.WithBasePath("/apps/pair"), arborhttp.WithSubmit("Send")))

	page := c.do("GET", "/", nil).Body.String()
	m := submitControl.FindStringSubmatch(page)
	require.Len(t, m, 2, "one-shot page must render a completion control")
	assert.Equal(t, "/apps/pair/submit", m[1])
	assert.Contains(t, page, ">Send</button>")

	w := c.do("POST", strings.TrimPrefix(m[1], "/apps/pair"), url.Values{"a": {"1"}, "b": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case store := <-app.Done():
		assert.Equal(t, domain.Store{"a": "1", "b": "2"}, store)
	case <-time.After(time.Second):
		t.Fatal("completion not delivered")
	}
}

func TestSanitizer_RejectsOversizedInput(t *testing.T) {
	t.Setenv("ARBOR_MAX_INPUT_SIZE", "8")
	c := newClient(t, arborhttp.NewServer(arbor.New("greeter", greeter)))

	w := c.do("POST", "/update", url.Values{"name": {"much too long"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrokenDefinition_FailsOnlyThatRequest(t *testing.T) {
	calls := 0
	app := arbor.New("flaky", func(b *dsl.Builder) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		b.Field("name")
	})
	c := newClient(t, arborhttp.NewServer(app))

	assert.Equal(t, http.StatusInternalServerError, c.do("GET", "/", nil).Code)
	assert.Equal(t, http.StatusOK, c.do("GET", "/", nil).Code)
}

type panickingEngine struct{ *arbor.App }

func (panickingEngine) Page(context.Context, string) (*domain.Result, error) {
	panic("engine exploded")
}

func TestRecoverer(t *testing.T) {
	srv := arborhttp.NewServer(panickingEngine{arbor.New("x", greeter)})
	c := newClient(t, srv)

	assert.Equal(t, http.StatusInternalServerError, c.do("GET", "/", nil).Code)
	assert.Equal(t, http.StatusOK, c.do("GET", "/health", nil).Code, "server keeps serving")
}

func TestBasePath(t *testing.T) {
	app := arbor.New("greeter", greeter, arbor.WithIDPrefix("greeter."))
	c := newClient(t, arborhttp.NewServer(app, arborhttp.WithBasePath("/apps/greeter/")))

	w := c.do("GET", "/", nil)
	assert.Contains(t, w.Body.String(), `hx-post="/apps/greeter/update"`)
	assert.Contains(t, w.Body.String(), `hx-post="/apps/greeter/action/greeter.greet_1"`)
	assert.Equal(t, "/apps/greeter", c.cookie.Path)
}

func TestAdapterOverride(t *testing.T) {
	srv := arborhttp.NewServer(arbor.New("greeter", greeter), arborhttp.WithAdapter(&render.JSON{}))
	c := newClient(t, srv)

	w := c.do("GET", "/", nil)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var view render.PageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "greeter", view.Title)

	w = c.do("POST", "/submit", url.Values{})
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "non-HTML adapters render the final page")
}

func TestHealthInfoAndSpec(t *testing.T) {
	srv := arborhttp.NewServer(arbor.New("greeter", greeter), arborhttp.WithVersion("1.2.3\n"))
	c := newClient(t, srv)

	w := c.do("GET", "/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = c.do("GET", "/info", nil)
	assert.JSONEq(t, `{"app":"greeter","version":"1.2.3","api_version":"0.1.0"}`, w.Body.String())

	w = c.do("GET", "/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{"/", "/update", "/action/{id}", "/form/{name}", "/submit", "/events", "/health", "/info"} {
		assert.NotNil(t, doc.Paths.Find(path), "documented path %s", path)
	}
}

func TestMetrics(t *testing.T) {
	m := observability.New()
	app := arbor.New("greeter", greeter, arbor.WithHooks(m.Hooks()))
	c := newClient(t, arborhttp.NewServer(app, arborhttp.WithMetrics(m)))

	c.do("GET", "/", nil)
	c.do("POST", "/action/nope_1", url.Values{})

	body := c.do("GET", "/metrics", nil).Body.String()
	assert.Contains(t, body, `arbor_requests_total{verb="page"} 1`)
	assert.Contains(t, body, `arbor_requests_total{verb="action"} 1`)
	assert.Contains(t, body, "arbor_unresolved_targets_total 1")
}

func TestSubscribeEvents_Session(t *testing.T) {
	srv := arborhttp.NewServer(arbor.New("greeter", greeter))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events?watch=name", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: arborhttp.SessionCookie, Value: "sess-1"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	post := func(form url.Values) {
		r, err := http.NewRequest("POST", ts.URL+"/update", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: arborhttp.SessionCookie, Value: "sess-1"})
		res, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		res.Body.Close()
	}
	// The first request hydrates defaults, which touches "name" too.
	post(url.Values{"name": {"Alice"}})

	var data []string
	for len(data) < 1 && lines.Scan() {
		if line := lines.Text(); strings.HasPrefix(line, "data: {") {
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Len(t, data, 1)

	var diff domain.StoreDiff
	require.NoError(t, json.Unmarshal([]byte(data[0]), &diff))
	assert.Equal(t, "sess-1", diff.SessionID)
	assert.Equal(t, "Alice", diff.Changes["name"])
}

func TestSubscribeEvents_IgnoresForeignSessionQuery(t *testing.T) {
	ts := httptest.NewServer(arborhttp.NewServer(arbor.New("greeter", greeter)))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/events?session_id=sess-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var issued string
	for _, ck := range resp.Cookies() {
		if ck.Name == arborhttp.SessionCookie {
			issued = ck.Value
		}
	}
	require.NotEmpty(t, issued, "the stream is bound to a cookie session of its own")
	assert.NotEqual(t, "sess-1", issued)
}

func TestStreamManager(t *testing.T) {
	sm := arborhttp.NewStreamManager(nil)
	sm.Dispatch(nil)

	ch, cancel := sm.Subscribe("s1")
	assert.Equal(t, 1, sm.Subscribers("s1"))

	sm.Dispatch(&domain.StoreDiff{SessionID: "s2", Changes: map[string]any{"a": "1"}})
	sm.Dispatch(&domain.StoreDiff{SessionID: "s1", Changes: map[string]any{"b": nil}})

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"session_id":"s1","changes":{"b":null}}`, msg)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s1"))
	_, open := <-ch
	assert.False(t, open)
}

func TestSharedStreams_PublishedByApp(t *testing.T) {
	sm := arborhttp.NewStreamManager(nil)
	app := arbor.New("greeter", greeter, arbor.WithDispatcher(sm))
	c := newClient(t, arborhttp.NewServer(app, arborhttp.WithStreams(sm)))
	c.do("GET", "/", nil)

	ch, cancel := sm.Subscribe(c.cookie.Value)
	defer cancel()
	c.do("POST", "/update", url.Values{"name": {"Zoe"}})

	select {
	case msg := <-ch:
		assert.Contains(t, msg, `"name":"Zoe"`)
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	select {
	case msg := <-ch:
		t.Fatalf("diff published twice: %s", msg)
	default:
	}
}
