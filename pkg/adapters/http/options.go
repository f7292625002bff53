package http

import (
	"log/slog"

	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/render"
)

// Config holds the settings of a Server.
type Config struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// Adapter overrides the renderer of the engine.
	Adapter render.Adapter
	// BasePath prefixes every URL the rendered page posts to (e.g. "/apps/todo").
	BasePath string
	Anchor   string
	// Version is reported by GET /info.
	Version string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	Streams      *StreamManager
	// Submit labels the one-shot completion control of rendered pages; empty hides it.
	Submit string
}

// Option configures a Server.
type Option func(*Config)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics counts requests per verb and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithAdapter renders pages with adapter instead of the engine's own.
func WithAdapter(adapter render.Adapter) Option {
	return func(c *Config) {
		c.Adapter = adapter
	}
}

// WithBasePath sets the mount point the rendered page posts back to.
func WithBasePath(path string) Option {
	return func(c *Config) {
		c.BasePath = path
	}
}

// WithAnchor sets the id of the element actions swap.
func WithAnchor(anchor string) Option {
	return func(c *Config) {
		c.Anchor = anchor
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.Version = version
	}
}

// WithSecureCookie marks the session cookie Secure (serve behind TLS).
func WithSecureCookie(on bool) Option {
	return func(c *Config) {
		c.SecureCookie = on
	}
}

// WithStreams shares a StreamManager, e.g. one also registered as the app's dispatcher.
// Diffs are then published by the app only, never twice.
func WithStreams(sm *StreamManager) Option {
	return func(c *Config) {
		c.Streams = sm
	}
}

// WithSubmit renders a completion control labelled label that posts to /submit.
// One-shot servers set it; long-running ones leave it empty.
func WithSubmit(label string) Option {
	return func(c *Config) {
		c.Submit = label
	}
}
