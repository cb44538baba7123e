package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the process counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Refreshes       prometheus.Counter
	RefreshFailures prometheus.Counter
	DroppedEntries  prometheus.Counter
	Requests        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borkacal",
			Name:      "refreshes_total",
			Help:      "Backend refreshes attempted.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borkacal",
			Name:      "refresh_failures_total",
			Help:      "Backend refreshes that failed to load events.",
		}),
		DroppedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "borkacal",
			Name:      "dropped_entries_total",
			Help:      "Events left out of a month grid because their start time could not be parsed.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "borkacal",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(m.Refreshes, m.RefreshFailures, m.DroppedEntries, m.Requests)
	return m
}

// ObserveRefresh counts a refresh attempt and its outcome.
func (m *Metrics) ObserveRefresh(err error) {
	m.Refreshes.Inc()
	if err != nil {
		m.RefreshFailures.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
