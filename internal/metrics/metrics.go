// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

type Metrics struct {
	Requests            *prometheus.CounterVec
	LatencyMS           *prometheus.HistogramVec
	CartMutations       *prometheus.CounterVec
	CheckoutSubmissions *prometheus.CounterVec
	Geolocation         *prometheus.CounterVec
	OutboxEvents        *prometheus.CounterVec
	ReferenceCache      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		CheckoutSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Checkout submit attempts by outcome.",
		}, []string{"outcome"}),
		Geolocation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geolocation_requests_total",
			Help:      "Location capture results.",
		}, []string{"outcome"}),
		OutboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handed to kafka by outcome.",
		}, []string{"outcome"}),
		ReferenceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_cache_lookups_total",
			Help:      "Reference data cache lookups.",
		}, []string{"list", "result"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.Requests, m.LatencyMS, m.CartMutations, m.CheckoutSubmissions,
		m.Geolocation, m.OutboxEvents, m.ReferenceCache,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) CartMutation(op, outcome string) {
	m.CartMutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Submission(outcome string) {
	m.CheckoutSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GeolocationOutcome(outcome string) {
	m.Geolocation.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OutboxEvent(outcome string) {
	m.OutboxEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(list string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ReferenceCache.WithLabelValues(list, result).Inc()
}
