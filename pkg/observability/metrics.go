// Package observability exposes Prometheus collectors for Arbor apps and the
// lifecycle hooks that feed them.
package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	Unresolved      prometheus.Counter
	HandlerFailures prometheus.Counter
	Commits         *prometheus.CounterVec
	BuildDuration   prometheus.Histogram
}

// New creates the collectors on a private registry, so several instances (tests,
// hosted apps) never collide on the global one.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_requests_total",
				Help: "Total number of requests by verb",
			},
			[]string{"verb"},
		),
		Unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_unresolved_targets_total",
			Help: "Action or form requests whose target was not in the rebuilt tree",
		}),
		HandlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbor_handler_failures_total",
			Help: "Action and commit handlers that returned an error or panicked",
		}),
		Commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_commits_total",
				Help: "Scoped form and one-shot commits by form name",
			},
			[]string{"form"},
		),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbor_build_duration_seconds",
			Help:    "Duration of tree builds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.Requests, m.Unresolved, m.HandlerFailures, m.Commits, m.BuildDuration)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts one request for verb.
func (m *Metrics) ObserveRequest(verb string) {
	m.Requests.WithLabelValues(verb).Inc()
}

// Hooks returns lifecycle hooks recording engine events into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnBuild: func(_ context.Context, e *domain.BuildEvent) {
			m.BuildDuration.Observe(e.Duration.Seconds())
		},
		OnUnresolved: func(context.Context, *domain.ActionEvent) {
			m.Unresolved.Inc()
		},
		OnHandlerFailure: func(context.Context, *domain.ActionEvent) {
			m.HandlerFailures.Inc()
		},
		OnCommit: func(_ context.Context, e *domain.CommitEvent) {
			m.Commits.WithLabelValues(e.Form).Inc()
		},
	}
}
