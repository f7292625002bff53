package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8080
	DefaultAttempts        = 10
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultSubmitLabel labels the completion control of RunOnce pages.
	DefaultSubmitLabel = "Submit"
)

// Config holds the listener and lifecycle settings of Serve and RunOnce.
type Config struct {
	Host      string
	FirstPort int
	Attempts  int
	// Timeout bounds RunOnce. Zero waits until the context ends.
	Timeout         time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
	// OnListen is called with the bound address once the server accepts connections.
	OnListen      func(addr string)
	ServerOptions []arborhttp.Option
}

// Option defines a functional option for configuring Serve and RunOnce.
type Option func(*Config)

func newConfig(opts []Option) Config {
	cfg := Config{
		Host:            DefaultHost,
		FirstPort:       DefaultPort,
		Attempts:        DefaultAttempts,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return cfg
}

// WithHost sets the interface to bind.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPortRange tries attempts consecutive ports starting at first.
// A first port of 0 binds an ephemeral port.
func WithPortRange(first, attempts int) Option {
	return func(c *Config) {
		c.FirstPort = first
		c.Attempts = attempts
	}
}

// WithTimeout bounds how long RunOnce waits for the submission.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithShutdownTimeout bounds the graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithOnListen registers a callback receiving the bound address.
func WithOnListen(fn func(addr string)) Option {
	return func(c *Config) {
		c.OnListen = fn
	}
}

// WithServerOptions configures the HTTP server RunOnce builds for the app.
func WithServerOptions(opts ...arborhttp.Option) Option {
	return func(c *Config) {
		c.ServerOptions = append(c.ServerOptions, opts...)
	}
}
