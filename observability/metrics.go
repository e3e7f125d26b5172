package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. Each App owns its own
// registry so tests can build several Apps in one process.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
	StorageOps   *prometheus.CounterVec
	QueryRetries prometheus.Counter
	Clicks       prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecms",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitecms",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		StorageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitecms",
			Name:      "storage_operations_total",
			Help:      "Storage shim operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		QueryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitecms",
			Name:      "db_query_retries_total",
			Help:      "Query attempts retried after a transient failure.",
		}),
		Clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sitecms",
			Name:      "event_clicks_total",
			Help:      "Event click-through increments.",
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPLatency,
		m.StorageOps,
		m.QueryRetries,
		m.Clicks,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}
	return m, nil
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
