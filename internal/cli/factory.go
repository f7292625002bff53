package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/bolt"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/definition"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// Factory builds Apps over one configured session backend.
type Factory struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	store   ports.StateStore
	locker  ports.DistributedLocker
	closers []func() error
}

// NewFactory opens the backend selected by cfg.
func NewFactory(cfg config.Config, logger *slog.Logger) (*Factory, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &Factory{cfg: cfg, logger: logger}
	if cfg.Metrics {
		f.metrics = observability.New()
	}

	store, err := f.open()
	if err != nil {
		return nil, err
	}

	mws, err := storeMiddleware(cfg.Store)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.store = middleware.Chain(store, mws...)
	return f, nil
}

func (f *Factory) open() (ports.StateStore, error) {
	sc := f.cfg.Store
	switch sc.Backend {
	case config.StoreFile:
		return file.New(sc.Dir), nil
	case config.StoreBolt:
		if dir := filepath.Dir(sc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create bolt directory: %w", err)
			}
		}
		s, err := bolt.Open(sc.Path)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, s.Close)
		return s, nil
	case config.StoreRedis:
		var opts []redis.Option
		if sc.TTL > 0 {
			opts = append(opts, redis.WithTTL(sc.TTL))
		}
		if sc.Prefix != "" {
			opts = append(opts, redis.WithPrefix(sc.Prefix))
		}
		s, err := redis.NewFromURL(sc.URL, opts...)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, s.Close)
		if f.cfg.Serialize {
			prefix := sc.Prefix
			if prefix == "" {
				prefix = redis.DefaultPrefix
			}
			f.locker = redis.NewLocker(s.Client(), prefix+"lock:")
		}
		return s, nil
	case config.StoreMemory, "":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// storeMiddleware masks PII before it is encrypted, so the key never sees raw values.
func storeMiddleware(sc config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(sc.PII) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(sc.PII))
	}
	if sc.EncryptionKey != "" {
		key, err := middleware.ParseKey(sc.EncryptionKey)
		if err != nil {
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return mws, nil
}

// Store is the configured session store, middleware included.
func (f *Factory) Store() ports.StateStore {
	return f.store
}

// Metrics is nil unless metrics are enabled.
func (f *Factory) Metrics() *observability.Metrics {
	return f.metrics
}

// Options returns the App options implied by the configuration. namespace, when
// set, isolates the app's sessions from other apps sharing the backend.
func (f *Factory) Options(namespace string) []arbor.Option {
	store := f.store
	if namespace != "" {
		store = middleware.NewNamespaceMiddleware(namespace + ".")(store)
	}
	opts := []arbor.Option{
		arbor.WithLogger(f.logger),
		arbor.WithStore(store),
		arbor.WithHooks(debugHooks(f.logger)),
		arbor.WithSerialization(f.cfg.Serialize),
	}
	if f.locker != nil {
		opts = append(opts, arbor.WithLocker(f.locker))
	}
	if f.metrics != nil {
		opts = append(opts, arbor.WithHooks(f.metrics.Hooks()))
	}
	return opts
}

// App builds an App for d.
func (f *Factory) App(d *definition.Definition, opts ...arbor.Option) *arbor.App {
	opts = append(append(f.Options(""), arbor.WithTitle(d.Title)), opts...)
	return arbor.New(d.Name, d.Def, opts...)
}

// Ping checks that the backend is reachable.
func (f *Factory) Ping(ctx context.Context) error {
	_, err := f.store.List(ctx)
	if err != nil {
		return fmt.Errorf("store %s unreachable: %w", f.cfg.Store.Backend, err)
	}
	return nil
}

// Close releases the backend.
func (f *Factory) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	f.closers = nil
	return errors.Join(errs...)
}
