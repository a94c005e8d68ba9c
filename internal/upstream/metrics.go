package upstream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records API call counts and latency per endpoint.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the upstream collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "headoffice_upstream_requests_total",
		Help: "API calls partitioned by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "headoffice_upstream_request_duration_seconds",
		Help:    "API call latency per endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	registerer.MustRegister(requests, duration)
	return &Metrics{requests: requests, duration: duration}
}

func (m *Metrics) observe(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
