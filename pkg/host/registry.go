// Package host serves several Arbor apps behind one listener.
//
// Each app is mounted at /apps/{name}/ with its own Store, tree cache and session
// cookie. The Registry is owned by the service that creates it and drained by
// Shutdown. Registrations are serialised by the Registry; each one swaps in a rebuilt
// router, so requests in flight keep the routes they started with. Other processes
// join a running host with Attach.
package host

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/definition"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
)

var (
	ErrRegistryClosed = errors.New("registry is shut down")
	ErrDuplicateApp   = errors.New("app already registered")
	ErrInvalidName    = errors.New("invalid app name")
)

// maxDefinitionSize bounds the body of an attach request.
const maxDefinitionSize = 1 << 20

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// MountPath returns the path prefix an app named name is served under.
func MountPath(name string) string {
	return "/apps/" + name
}

// AttachPath returns the path a definition for app name is attached at.
func AttachPath(name string) string {
	return "/attach/" + name
}

// IDPrefix returns the identifier prefix of an app named name, so action ids of
// different apps never collide in logs and metrics.
func IDPrefix(name string) string {
	return name + "."
}

// AppOptions returns the options of an app attached under name.
type AppOptions func(name string) []arbor.Option

// Registry maps app names to their handlers.
type Registry struct {
	mu       sync.RWMutex
	apps     map[string]http.Handler
	closed   bool
	inflight sync.WaitGroup
	router   atomic.Pointer[chi.Mux]

	logger  *slog.Logger
	options []arborhttp.Option
	attach  AppOptions
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger of the registry and of every mounted server.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithServerOptions applies opts to every mounted HTTP server.
func WithServerOptions(opts ...arborhttp.Option) Option {
	return func(r *Registry) {
		r.options = append(r.options, opts...)
	}
}

// WithAttach accepts YAML definitions at PUT /attach/{name}. Each attached app is
// created with the options opts returns for its name.
func WithAttach(opts AppOptions) Option {
	return func(r *Registry) {
		r.attach = opts
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{apps: make(map[string]http.Handler)}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.router.Store(r.routes())
	return r
}

// Add creates an app for def with the mount's identifier prefix and registers it.
func (r *Registry) Add(name string, def dsl.Definition, opts ...arbor.Option) (*arbor.App, error) {
	opts = append([]arbor.Option{arbor.WithIDPrefix(IDPrefix(name)), arbor.WithLogger(r.logger)}, opts...)
	app := arbor.New(name, def, opts...)
	if err := r.Register(app); err != nil {
		return nil, err
	}
	return app, nil
}

// Register mounts engine at MountPath(engine.Name()).
func (r *Registry) Register(engine ports.Engine) error {
	name := engine.Name()
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.apps[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateApp, name)
	}

	opts := append([]arborhttp.Option{
		arborhttp.WithLogger(r.logger.With("app", name)),
		arborhttp.WithBasePath(MountPath(name)),
	}, r.options...)
	r.apps[name] = arborhttp.NewServer(engine, opts...)
	r.router.Store(r.routes())
	r.logger.Debug("App registered", "app", name, "path", MountPath(name))
	return nil
}

// Names returns the registered app names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.apps))
	for name := range r.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the router of every app plus an index at /. Apps registered
// later are served by the same handler.
func (r *Registry) Handler() http.Handler {
	return r.track(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.router.Load().ServeHTTP(w, req)
	}))
}

// routes builds the router of the current app set. The caller holds mu, except
// in NewRegistry.
func (r *Registry) routes() *chi.Mux {
	router := chi.NewRouter()
	router.Get("/", r.index)
	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if r.attach != nil {
		router.Put(AttachPath("{name}"), r.handleAttach)
	}
	for _, name := range r.names() {
		router.Mount(MountPath(name), r.apps[name])
	}
	return router
}

// track refuses requests once Shutdown began and counts the ones in flight.
func (r *Registry) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		closed := r.closed
		if !closed {
			r.inflight.Add(1)
		}
		r.mu.RUnlock()
		if closed {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		defer r.inflight.Done()
		next.ServeHTTP(w, req)
	})
}

// handleAttach handles PUT /attach/{name} with a YAML definition as body.
func (r *Registry) handleAttach(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxDefinitionSize))
	if err != nil {
		http.Error(w, "Definition too large", http.StatusRequestEntityTooLarge)
		return
	}
	d, err := definition.Parse(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := append(r.attach(name), arbor.WithTitle(d.Title))
	if _, err := r.Add(name, d.Def, opts...); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, ErrDuplicateApp):
			status = http.StatusConflict
		case errors.Is(err, ErrRegistryClosed):
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	r.logger.Info("App attached", "app", name, "remote", req.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "{\"app\":%q,\"path\":%q}\n", name, MountPath(name)+"/")
}

// Shutdown stops accepting requests and waits for the ones in flight, or for ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		r.logger.Info("Registry drained", "apps", len(r.Names()))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Arbor</title></head>
<body>
<h1>Arbor</h1>
<ul>
{{range .}}<li><a href="/apps/{{.}}/">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

func (r *Registry) index(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, r.Names()); err != nil {
		r.logger.Error("Index render failed", "err", err)
	}
}
