// Package metrics provides Prometheus metrics for the archive copier.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the archive copier.
type Metrics struct {
	// Object metrics
	ObjectsCopied *prometheus.CounterVec
	CopyAttempts  prometheus.Counter
	CopyRetries   prometheus.Counter
	CopyDuration  prometheus.Histogram

	// Status store metrics
	StatusErrors *prometheus.CounterVec

	// Invocation metrics
	Invocations        *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "archive_copier"

var defaultMetrics *Metrics

// Init initializes the global metrics on the default registry.
// Call this once at startup.
func Init(namespace string) *Metrics {
	m := New(namespace, prometheus.DefaultRegisterer)
	defaultMetrics = m
	return m
}

// New creates metrics registered on reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		ObjectsCopied: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_copied_total",
				Help:      "Total number of objects processed, by final status",
			},
			[]string{"status"},
		),
		CopyAttempts: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copy_attempts_total",
				Help:      "Total number of copy requests issued to the object store",
			},
		),
		CopyRetries: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "copy_retries_total",
				Help:      "Total number of copy attempts after the first",
			},
		),
		CopyDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "copy_duration_seconds",
				Help:      "Time to copy one object, including retries",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
		),
		StatusErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_errors_total",
				Help:      "Total number of failed status store interactions",
			},
			[]string{"operation"},
		),
		Invocations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of invocations, by outcome",
			},
			[]string{"outcome"},
		),
		InvocationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Total time to handle one invocation",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~400s
			},
		),
	}
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// Handler returns the Prometheus scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncObjectsCopied increments the objects counter for a final status.
func (m *Metrics) IncObjectsCopied(status string) {
	m.ObjectsCopied.WithLabelValues(status).Inc()
}

// IncCopyAttempts increments the copy attempts counter.
func (m *Metrics) IncCopyAttempts() {
	m.CopyAttempts.Inc()
}

// IncCopyRetries increments the copy retries counter.
func (m *Metrics) IncCopyRetries() {
	m.CopyRetries.Inc()
}

// ObserveCopyDuration records the time spent copying one object.
func (m *Metrics) ObserveCopyDuration(seconds float64) {
	m.CopyDuration.Observe(seconds)
}

// IncStatusErrors increments the status store error counter.
func (m *Metrics) IncStatusErrors(operation string) {
	m.StatusErrors.WithLabelValues(operation).Inc()
}

// IncInvocations increments the invocation counter for an outcome.
func (m *Metrics) IncInvocations(outcome string) {
	m.Invocations.WithLabelValues(outcome).Inc()
}

// ObserveInvocationDuration records the total invocation time.
func (m *Metrics) ObserveInvocationDuration(seconds float64) {
	m.InvocationDuration.Observe(seconds)
}
