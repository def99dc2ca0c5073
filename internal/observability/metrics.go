package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	evalRequestsTotal  *prometheus.CounterVec
	evalLatencySeconds *prometheus.HistogramVec
	evalErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for API observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		evalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		evalLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "essay_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"method", "route"})

		evalErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essay_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(evalRequestsTotal, evalLatencySeconds, evalErrorsTotal)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return evalRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return evalLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return evalErrorsTotal
}
