// Package metrics provides Prometheus metrics for the sync worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus metrics for the worker. Metrics are kept on
// a custom registry so the scrape output carries only what the worker
// itself reports.
type Manager struct {
	namespace string
	subsystem string
	registry  *prometheus.Registry

	syncRuns     prometheus.Counter
	syncDuration prometheus.Histogram
	profiles     *prometheus.CounterVec

	remindersSent    prometheus.Counter
	reminderFailures prometheus.Counter

	trackedProfiles prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithRegistry uses the given registry instead of a fresh one.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// NewManager creates a metrics manager with all metrics registered.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "spms",
		subsystem: "worker",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.syncRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_runs_total",
		Help:      "Total number of completed sync runs",
	})

	m.syncDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_run_duration_seconds",
		Help:      "Duration of full sync runs in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	m.profiles = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "sync_profiles_total",
			Help:      "Total number of per-profile sync attempts by result",
		},
		[]string{"result"},
	)

	m.remindersSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reminders_sent_total",
		Help:      "Total number of inactivity reminder emails sent",
	})

	m.reminderFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reminder_failures_total",
		Help:      "Total number of reminder emails that failed to send",
	})

	m.trackedProfiles = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_profiles",
		Help:      "Number of tracked profiles in the roster",
	})

	return m
}

// ObserveSyncRun records a completed sync run and its duration.
func (m *Manager) ObserveSyncRun(d time.Duration) {
	m.syncRuns.Inc()
	m.syncDuration.Observe(d.Seconds())
}

// IncProfileSynced counts one successfully synced profile.
func (m *Manager) IncProfileSynced() {
	m.profiles.WithLabelValues("synced").Inc()
}

// IncProfileFailed counts one profile whose sync failed.
func (m *Manager) IncProfileFailed() {
	m.profiles.WithLabelValues("failed").Inc()
}

// IncReminderSent counts one delivered inactivity reminder.
func (m *Manager) IncReminderSent() {
	m.remindersSent.Inc()
}

// IncReminderFailed counts one reminder that failed to send.
func (m *Manager) IncReminderFailed() {
	m.reminderFailures.Inc()
}

// SetTrackedProfiles records the current roster size.
func (m *Manager) SetTrackedProfiles(count int) {
	m.trackedProfiles.Set(float64(count))
}

// Registry exposes the registry for additional collectors.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the scrape endpoint.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
