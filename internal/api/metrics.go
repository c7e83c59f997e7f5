package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/skilltree/pkg/observability"
)

// Metrics implements the observability hooks on top of a private
// Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	reconciles       prometheus.Counter
	orphans          prometheus.Counter
	linked           prometheus.Counter
	tokens           *prometheus.CounterVec
	tokenBytes       prometheus.Histogram
	clipboard        *prometheus.CounterVec
	sessions         prometheus.Gauge
	requests         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "skilltree_mutations_total", Help: "Tree mutations by operation and outcome"},
			[]string{"op", "status"},
		),
		mutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skilltree_mutation_duration_seconds",
				Help:    "Mutation duration in seconds, including the connectivity pass",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"op"},
		),
		reconciles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skilltree_reconcile_passes_total",
			Help: "Connectivity passes run",
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skilltree_reconcile_orphans_total",
			Help: "Orphans seen by connectivity passes",
		}),
		linked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skilltree_reconcile_linked_total",
			Help: "Connections created by connectivity passes",
		}),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "skilltree_tokens_total", Help: "Token exports and imports by outcome"},
			[]string{"direction", "status"},
		),
		tokenBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "skilltree_token_bytes",
			Help:    "Size of exported tokens",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		clipboard: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "skilltree_clipboard_ops_total", Help: "Clipboard operations by backend and outcome"},
			[]string{"backend", "op", "status"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skilltree_sessions",
			Help: "Live editing sessions",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "skilltree_http_requests_total", Help: "HTTP requests by route pattern and status class"},
			[]string{"method", "route", "code"},
		),
	}
	m.registry.MustRegister(
		m.mutations, m.mutationDuration,
		m.reconciles, m.orphans, m.linked,
		m.tokens, m.tokenBytes,
		m.clipboard, m.sessions, m.requests,
	)
	return m
}

// Install registers m as the process-wide observability hooks.
func (m *Metrics) Install() {
	observability.SetEditHooks(m)
	observability.SetTokenHooks(m)
	observability.SetClipboardHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) OnMutation(op string, d time.Duration, err error) {
	m.mutations.WithLabelValues(op, status(err)).Inc()
	m.mutationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) OnReconcile(orphans, linked int, _ time.Duration) {
	m.reconciles.Inc()
	m.orphans.Add(float64(orphans))
	m.linked.Add(float64(linked))
}

func (m *Metrics) OnExport(_, _ int, size int) {
	m.tokens.WithLabelValues("export", "ok").Inc()
	m.tokenBytes.Observe(float64(size))
}

func (m *Metrics) OnImport(_, _, _ int, err error) {
	m.tokens.WithLabelValues("import", status(err)).Inc()
}

func (m *Metrics) OnWrite(backend string, _ int, err error) {
	m.clipboard.WithLabelValues(backend, "write", status(err)).Inc()
}

func (m *Metrics) OnRead(backend string, hit bool, err error) {
	st := status(err)
	if err == nil && !hit {
		st = "miss"
	}
	m.clipboard.WithLabelValues(backend, "read", st).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
