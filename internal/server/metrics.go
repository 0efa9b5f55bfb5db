package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	analyses    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	quotes      *prometheus.CounterVec
	billTotal   prometheus.Histogram
	subscribers prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billcheck",
			Name:      "http_requests_total",
			Help:      "HTTP requests by handler, method and status code.",
		}, []string{"handler", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billcheck",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by handler.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"handler", "method"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billcheck",
			Name:      "analyses_total",
			Help:      "Completed analyses by input source and record variant.",
		}, []string{"source", "variant"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billcheck",
			Name:      "analysis_failures_total",
			Help:      "Rejected analyses by input source and reason.",
		}, []string{"source", "reason"}),
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billcheck",
			Name:      "quotes_total",
			Help:      "Savings quotes by quoted plan.",
		}, []string{"plan"}),
		billTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "billcheck",
			Name:      "bill_total_amount",
			Help:      "Normalized bill totals in currency units.",
			Buckets:   []float64{25, 50, 100, 150, 200, 300, 500, 1000},
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "billcheck",
			Name:      "stream_subscribers",
			Help:      "Open event stream connections.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.analyses, m.failures, m.quotes, m.billTotal, m.subscribers,
	)
	return m
}

func (m *metrics) instrument(name string, h http.HandlerFunc) http.Handler {
	labels := prometheus.Labels{"handler": name}
	return promhttp.InstrumentHandlerCounter(
		m.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(m.latency.MustCurryWith(labels), h),
	)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
