package http

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/coerce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "arbor_session"

// Server exposes one Engine over HTTP. It implements http.Handler.
type Server struct {
	Engine  ports.Engine
	Streams *StreamManager

	cfg     Config
	adapter render.Adapter
	title   string
	publish bool
	router  chi.Router
}

// NewServer creates the router of engine. Apps created with arbor.New already carry
// an Adapter and a title; other engines default to HTML and their name.
func NewServer(engine ports.Engine, opts ...Option) *Server {
	cfg := Config{Anchor: render.DefaultAnchor, Version: "dev"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	cfg.BasePath = strings.TrimSuffix(cfg.BasePath, "/")

	s := &Server{
		Engine:  engine,
		Streams: cfg.Streams,
		cfg:     cfg,
		adapter: cfg.Adapter,
		title:   engine.Name(),
		publish: cfg.Streams == nil,
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(cfg.Logger)
	}
	if s.adapter == nil {
		if a, ok := engine.(interface{ Adapter() render.Adapter }); ok {
			s.adapter = a.Adapter()
		} else {
			s.adapter = render.NewHTML()
		}
	}
	if t, ok := engine.(interface{ Title() string }); ok && t.Title() != "" {
		s.title = t.Title()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverer)

	r.Get("/", s.GetPage)
	r.Post("/update", s.SyncFields)
	r.Post("/action/{id}", s.InvokeAction)
	r.Post("/form/{name}", s.SubmitForm)
	r.Post("/submit", s.Complete)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// recoverer turns a panic in one request into a 500. Other sessions keep working.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.cfg.Logger.Error("Request panicked",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetPage handles GET /.
func (s *Server) GetPage(w http.ResponseWriter, r *http.Request) {
	s.observe("page")
	sid := s.session(w, r)
	res, err := s.Engine.Page(r.Context(), sid)
	if err != nil {
		s.fail(w, r, "Page", err)
		return
	}
	s.publishDiff(sid, res)
	s.write(w, r, res, render.Full)
}

// SyncFields handles POST /update.
func (s *Server) SyncFields(w http.ResponseWriter, r *http.Request) {
	s.observe("update")
	values, ok := s.form(w, r)
	if !ok {
		return
	}
	sid := s.session(w, r)
	res, err := s.Engine.Sync(r.Context(), sid, values)
	if err != nil {
		s.fail(w, r, "Sync", err)
		return
	}
	s.publishDiff(sid, res)
	w.WriteHeader(http.StatusNoContent)
}

// InvokeAction handles POST /action/{id}.
func (s *Server) InvokeAction(w http.ResponseWriter, r *http.Request) {
	s.observe("action")
	values, ok := s.form(w, r)
	if !ok {
		return
	}
	sid := s.session(w, r)
	id := chi.URLParam(r, "id")
	res, err := s.Engine.Act(r.Context(), sid, id, values)
	if err != nil {
		s.fail(w, r, "Act", err)
		return
	}
	s.publishDiff(sid, res)
	s.write(w, r, res, render.Partial)
}

// SubmitForm handles POST /form/{name}.
func (s *Server) SubmitForm(w http.ResponseWriter, r *http.Request) {
	s.observe("form")
	values, ok := s.form(w, r)
	if !ok {
		return
	}
	sid := s.session(w, r)
	res, err := s.Engine.SubmitForm(r.Context(), sid, chi.URLParam(r, "name"), values)
	if err != nil {
		s.fail(w, r, "SubmitForm", err)
		return
	}
	s.publishDiff(sid, res)
	s.write(w, r, res, render.Partial)
}

// Complete handles POST /submit.
func (s *Server) Complete(w http.ResponseWriter, r *http.Request) {
	s.observe("submit")
	values, ok := s.form(w, r)
	if !ok {
		return
	}
	sid := s.session(w, r)
	res, err := s.Engine.Complete(r.Context(), sid, values)
	if errors.Is(err, domain.ErrAlreadyCompleted) {
		http.Error(w, "Already submitted", http.StatusConflict)
		return
	}
	if err != nil {
		s.fail(w, r, "Complete", err)
		return
	}
	s.publishDiff(sid, res)

	if _, ok := s.adapter.(*render.HTML); !ok {
		s.write(w, r, res, render.Full)
		return
	}
	w.Header().Set("Content-Type", s.adapter.ContentType())
	fmt.Fprintf(w, completeHTML, template.HTMLEscapeString(s.title))
}

const completeHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>%[1]s</title></head>
<body><main id="arbor-complete"><h1>%[1]s</h1><p>Submitted. You can close this window.</p></main></body>
</html>
`

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, map[string]string{
		"app":         s.Engine.Name(),
		"version":     strings.TrimSpace(s.cfg.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles GET /events (SSE). Clients only ever see the diffs of
// their own session cookie.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sid := s.session(w, r)
	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				watch = append(watch, k)
			}
		}
	}

	ch, cancel := s.Streams.Subscribe(sid)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.cfg.Logger.Debug("SSE: Subscribed", "session_id", sid, "watch", watch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !touches(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// touches reports whether the encoded diff changes any of keys.
func touches(msg string, keys []string) bool {
	var diff domain.StoreDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, k := range keys {
		if _, ok := diff.Changes[k]; ok {
			return true
		}
	}
	return false
}

// -- Helpers --

func (s *Server) observe(verb string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveRequest(verb)
	}
}

func (s *Server) publishDiff(sid string, res *domain.Result) {
	if s.publish {
		s.Streams.Dispatch(diffOf(sid, res))
	}
}

// session returns the session id of the request, issuing a cookie on first contact.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid := newSessionID()
	path := s.cfg.BasePath
	if path == "" {
		path = "/"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     path,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.cfg.Logger.Debug("Session issued", "session_id", sid)
	return sid
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// form parses and sanitizes the request body. It writes 400 on failure.
func (s *Server) form(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		s.cfg.Logger.Warn("Invalid form body", "err", err, "path", r.URL.Path)
		return nil, false
	}
	values, err := coerce.SanitizeValues(r.PostForm)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.cfg.Logger.Warn("Input rejected", "err", err, "path", r.URL.Path)
		return nil, false
	}
	return values, true
}

// write renders res with the adapter. A contained handler failure shows as a banner.
func (s *Server) write(w http.ResponseWriter, r *http.Request, res *domain.Result, mode render.Mode) {
	page := render.Page{
		Title:    s.title,
		Tree:     res.Tree,
		Store:    res.Store,
		Mode:     mode,
		Anchor:   s.cfg.Anchor,
		BasePath: s.cfg.BasePath,
		Submit:   s.cfg.Submit,
	}
	if res.Err != nil {
		page.Error = res.Err.Error()
		s.cfg.Logger.Warn("Handler failed", "err", res.Err, "request_id", middleware.GetReqID(r.Context()))
	}
	if res.Unresolved != "" {
		w.Header().Set("X-Arbor-Unresolved", res.Unresolved)
		s.cfg.Logger.Info("Unresolved target", "target", res.Unresolved, "path", r.URL.Path)
	}

	// Render into a buffer so a render failure can still become a clean 500.
	var buf bytes.Buffer
	if err := s.adapter.Render(&buf, page); err != nil {
		s.fail(w, r, "Render", err)
		return
	}
	w.Header().Set("Content-Type", s.adapter.ContentType())
	w.Write(buf.Bytes())
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, verb string, err error) {
	s.cfg.Logger.Error(verb+" failed", "err", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
