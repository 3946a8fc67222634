// Package metrics exposes Prometheus counters for the editing server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the server's collectors on their own registry.
type Metrics struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	exports   *prometheus.CounterVec
	imports   *prometheus.CounterVec
	nodes     prometheus.Gauge
	edges     prometheus.Gauge
	requests  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_graph_mutations_total",
			Help: "Graph mutations by operation and outcome.",
		}, []string{"op", "result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_exports_total",
			Help: "Documents exported by format.",
		}, []string{"format"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_imports_total",
			Help: "Import attempts by outcome.",
		}, []string{"result"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "workflow_graph_nodes",
			Help: "Nodes currently in the graph.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "workflow_graph_edges",
			Help: "Edges currently in the graph.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(m.mutations, m.exports, m.imports, m.nodes, m.edges, m.requests)
	return m
}

// Mutation counts one graph mutation.
func (m *Metrics) Mutation(op string, err error) {
	m.mutations.WithLabelValues(op, outcome(err)).Inc()
}

// Export counts one export in format.
func (m *Metrics) Export(format string) {
	m.exports.WithLabelValues(format).Inc()
}

// Import counts one import attempt.
func (m *Metrics) Import(err error) {
	m.imports.WithLabelValues(outcome(err)).Inc()
}

// GraphSize records the current graph size.
func (m *Metrics) GraphSize(nodes, edges int) {
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
}

// Request observes one HTTP request.
func (m *Metrics) Request(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
