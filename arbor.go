package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/coerce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/aretw0/arbor/pkg/session"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Result is the outcome of one verb; see domain.Result.
type Result = domain.Result

// App binds one Definition to its session stores and answers the interaction verbs.
// It is safe for concurrent use. Requests against the same session are not
// serialised unless WithSerialization is set: the last write wins.
type App struct {
	name   string
	def    dsl.Definition
	title  string
	prefix string

	store      ports.StateStore
	locker     ports.DistributedLocker
	serialized bool
	sessions   *session.Manager

	adapter    render.Adapter
	hooks      domain.LifecycleHooks
	dispatcher ports.DiffDispatcher
	logger     *slog.Logger

	treeCacheSize int
	trees         *lru.Cache[string, *domain.Tree]

	done      chan domain.Store
	doneOnce  sync.Once
	completed atomic.Bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStore replaces the default in-memory session store.
func WithStore(store ports.StateStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithAdapter sets the renderer transports use by default (HTML otherwise).
func WithAdapter(adapter render.Adapter) Option {
	return func(a *App) {
		a.adapter = adapter
	}
}

// WithHooks registers lifecycle hooks. Repeated calls accumulate.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = a.hooks.Merge(hooks)
	}
}

// WithIDPrefix prepends prefix to every action identifier.
func WithIDPrefix(prefix string) Option {
	return func(a *App) {
		a.prefix = prefix
	}
}

// WithSerialization serialises requests per session.
func WithSerialization(on bool) Option {
	return func(a *App) {
		a.serialized = on
	}
}

// WithLocker serialises requests per session across replicas. It implies WithSerialization.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = locker
	}
}

// DefaultTreeCacheSize is the number of sessions whose latest tree is kept in memory.
const DefaultTreeCacheSize = 1024

// WithTreeCacheSize bounds the per-session tree cache. The least recently used
// session is evicted first; its next request rebuilds the tree from the Store.
func WithTreeCacheSize(n int) Option {
	return func(a *App) {
		a.treeCacheSize = n
	}
}

// WithTitle sets the default document title.
func WithTitle(title string) Option {
	return func(a *App) {
		a.title = title
	}
}

// WithDispatcher receives the Store diff of every request (e.g. an event stream).
func WithDispatcher(d ports.DiffDispatcher) Option {
	return func(a *App) {
		a.dispatcher = d
	}
}

// New creates an App named name around def.
func New(name string, def dsl.Definition, opts ...Option) *App {
	a := &App{
		name:          name,
		def:           def,
		title:         name,
		treeCacheSize: DefaultTreeCacheSize,
		done:          make(chan domain.Store, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.treeCacheSize < 1 {
		a.treeCacheSize = DefaultTreeCacheSize
	}
	// lru.New only fails on a non-positive size.
	a.trees, _ = lru.New[string, *domain.Tree](a.treeCacheSize)
	if a.adapter == nil {
		a.adapter = render.NewHTML()
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	a.logger = a.logger.With("app", a.name)

	a.sessions = session.NewManager(a.store,
		session.WithSerialization(a.serialized),
		session.WithLocker(a.locker),
		session.WithLogger(a.logger),
	)
	return a
}

// Name identifies the app.
func (a *App) Name() string { return a.name }

// Title is the default document title.
func (a *App) Title() string { return a.title }

// Adapter is the renderer configured for this app.
func (a *App) Adapter() render.Adapter { return a.adapter }

// Sessions exposes the session manager (listing, inspection, deletion).
func (a *App) Sessions() *session.Manager { return a.sessions }

// Done delivers the captured Store of the one-shot submission, exactly once.
func (a *App) Done() <-chan domain.Store { return a.done }

// Preview builds the tree for store without touching any session.
func (a *App) Preview(store domain.Store) (*domain.Tree, error) {
	if store == nil {
		store = domain.NewStore()
	}
	return dsl.Build(a.def, store, dsl.WithPrefix(a.prefix), dsl.WithTitle(a.title))
}

// Forget drops the session's cached tree and stored state.
func (a *App) Forget(ctx context.Context, sessionID string) error {
	a.trees.Remove(sessionID)
	return a.sessions.Delete(ctx, sessionID)
}

// Page loads or creates the session and builds the tree, hydrating defaults.
func (a *App) Page(ctx context.Context, sessionID string) (*Result, error) {
	return a.cycle(ctx, sessionID, func(ctx context.Context, store domain.Store, res *Result) error {
		tree, err := a.build(ctx, sessionID, store)
		res.Tree = tree
		return err
	})
}

// Sync coerces and merges the posted values of the current bindings. No handler runs.
func (a *App) Sync(ctx context.Context, sessionID string, values url.Values) (*Result, error) {
	return a.cycle(ctx, sessionID, func(ctx context.Context, store domain.Store, res *Result) error {
		if _, err := a.merge(ctx, sessionID, store, values); err != nil {
			return err
		}
		tree, err := a.build(ctx, sessionID, store)
		res.Tree = tree
		return err
	})
}

// Act merges the posted values, rebuilds, runs the handler of actionID when the
// rebuilt tree still declares it, then rebuilds again for the handler's effects.
// An unknown actionID is not an error: Result.Unresolved is set and nothing runs.
// A failing handler is contained in Result.Err; merged values stay committed.
func (a *App) Act(ctx context.Context, sessionID, actionID string, values url.Values) (*Result, error) {
	return a.cycle(ctx, sessionID, func(ctx context.Context, store domain.Store, res *Result) error {
		tree, err := a.merge(ctx, sessionID, store, values)
		if err != nil {
			return err
		}

		node, ok := tree.Action(actionID)
		if !ok {
			a.unresolved(ctx, sessionID, actionID, domain.ErrUnresolvedTarget, res)
			res.Tree = tree
			return nil
		}

		a.runHandler(ctx, sessionID, actionID, node.Handler, store, res)

		res.Tree, err = a.build(ctx, sessionID, store)
		return err
	})
}

// SubmitForm commits the scoped form name: its buffer is rebuilt from the posted
// name[field] values and replaces store[name] as one unit, then OnSubmit runs.
func (a *App) SubmitForm(ctx context.Context, sessionID, name string, values url.Values) (*Result, error) {
	return a.cycle(ctx, sessionID, func(ctx context.Context, store domain.Store, res *Result) error {
		tree, err := a.merge(ctx, sessionID, store, values)
		if err != nil {
			return err
		}

		form, ok := tree.Form(name)
		if !ok {
			a.unresolved(ctx, sessionID, name, domain.ErrUnknownForm, res)
			res.Tree = tree
			return nil
		}

		a.commit(ctx, sessionID, form, store, values, res)

		res.Tree, err = a.build(ctx, sessionID, store)
		return err
	})
}

// Complete is the one-shot submit. It commits top-level values and every scoped
// form of the tree, as SubmitForm would, then delivers a copy of the Store on Done.
// A form with nothing posted still commits: its unchecked toggles become false.
// A second completion returns domain.ErrAlreadyCompleted.
func (a *App) Complete(ctx context.Context, sessionID string, values url.Values) (*Result, error) {
	if a.completed.Load() {
		return nil, domain.ErrAlreadyCompleted
	}
	completed := false
	res, err := a.cycle(ctx, sessionID, func(ctx context.Context, store domain.Store, res *Result) error {
		tree, err := a.merge(ctx, sessionID, store, values)
		if err != nil {
			return err
		}
		for _, form := range tree.Forms() {
			a.commit(ctx, sessionID, form, store, values, res)
		}

		a.doneOnce.Do(func() {
			a.done <- store.Clone()
			a.completed.Store(true)
			completed = true
		})
		if !completed {
			return domain.ErrAlreadyCompleted
		}

		res.Tree, err = a.build(ctx, sessionID, store)
		return err
	})
	if completed {
		a.logger.Info("One-shot submission captured", "session_id", sessionID)
	}
	return res, err
}

// cycle runs one request against the session: load, mutate, save, diff.
func (a *App) cycle(ctx context.Context, sessionID string, fn func(context.Context, domain.Store, *Result) error) (*Result, error) {
	res := &Result{}
	err := a.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store, created, err := a.sessions.LoadOrCreate(ctx, sessionID)
		if err != nil {
			return err
		}
		if created {
			// A tree cached for an expired session describes state that is gone.
			a.trees.Remove(sessionID)
			a.logger.Debug("Session created", "session_id", sessionID)
		}
		before := store.Clone()

		if err := fn(ctx, store, res); err != nil {
			return err
		}

		if err := a.sessions.Save(ctx, sessionID, store); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		diff := domain.Diff(sessionID, before, store)
		res.Store = store.Clone()
		res.Changed = diff.Keys()
		if diff != nil && a.dispatcher != nil {
			a.dispatcher.Dispatch(diff)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// merge coerces values against the bindings of the session's most recent tree and
// returns a tree rebuilt from the merged Store.
func (a *App) merge(ctx context.Context, sessionID string, store domain.Store, values url.Values) (*domain.Tree, error) {
	tree, err := a.current(ctx, sessionID, store)
	if err != nil {
		return nil, err
	}
	if changed := coerce.Apply(store, tree.Bindings(), values); len(changed) > 0 {
		a.logger.Debug("Fields synced", "session_id", sessionID, "keys", changed)
	}
	return a.build(ctx, sessionID, store)
}

func (a *App) commit(ctx context.Context, sessionID string, form *domain.Node, store domain.Store, values url.Values, res *Result) {
	buf := coerce.Scoped(form, store.Map(form.Key), values)
	store[form.Key] = buf

	keys := make([]string, 0, len(buf))
	for k := range buf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if a.hooks.OnCommit != nil {
		a.hooks.OnCommit(ctx, &domain.CommitEvent{
			EventBase: a.event(domain.EventCommit, sessionID),
			Form:      form.Key,
			Keys:      keys,
		})
	}

	a.runHandler(ctx, sessionID, form.Key, form.OnSubmit, store, res)
}

func (a *App) runHandler(ctx context.Context, sessionID, id string, h domain.Handler, store domain.Store, res *Result) {
	ev := &domain.ActionEvent{EventBase: a.event(domain.EventAction, sessionID), ActionID: id}
	if a.hooks.OnAction != nil {
		a.hooks.OnAction(ctx, ev)
	}

	if err := domain.Invoke(id, h, store); err != nil {
		a.logger.Error("Handler failed", "session_id", sessionID, "target", id, "err", err)
		res.Err = err
		ev.Type, ev.Err = domain.EventHandlerFailure, err
		if a.hooks.OnHandlerFailure != nil {
			a.hooks.OnHandlerFailure(ctx, ev)
		}
	}
}

func (a *App) unresolved(ctx context.Context, sessionID, target string, cause error, res *Result) {
	a.logger.Warn("Unresolved target", "session_id", sessionID, "target", target, "err", cause)
	res.Unresolved = target
	if a.hooks.OnUnresolved != nil {
		a.hooks.OnUnresolved(ctx, &domain.ActionEvent{
			EventBase: a.event(domain.EventUnresolved, sessionID),
			ActionID:  target,
			Err:       cause,
		})
	}
}

// current returns the most recently built tree of the session, building one from
// store when none is cached.
func (a *App) current(ctx context.Context, sessionID string, store domain.Store) (*domain.Tree, error) {
	if tree, ok := a.trees.Get(sessionID); ok {
		return tree, nil
	}
	return a.build(ctx, sessionID, store)
}

func (a *App) build(ctx context.Context, sessionID string, store domain.Store) (*domain.Tree, error) {
	start := time.Now()
	tree, err := a.Preview(store)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", a.name, err)
	}

	a.trees.Add(sessionID, tree)

	if a.hooks.OnBuild != nil {
		nodes := 0
		tree.Walk(func(*domain.Node) bool { nodes++; return true })
		a.hooks.OnBuild(ctx, &domain.BuildEvent{
			EventBase: a.event(domain.EventBuild, sessionID),
			Duration:  time.Since(start),
			Nodes:     nodes,
			Actions:   len(tree.Actions()),
		})
	}
	return tree, nil
}

func (a *App) event(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}
