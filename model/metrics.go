package model

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type providerMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newProviderMetrics(registry *prometheus.Registry) *providerMetrics {
	if registry == nil {
		return nil
	}

	metrics := &providerMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completion_requests_total",
				Help: "Total number of completion requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "completion_request_duration_seconds",
				Help:    "Completion request duration by provider",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(metrics.requests, metrics.duration)

	return metrics
}

func (m *providerMetrics) Observe(provider string, start time.Time, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	m.requests.WithLabelValues(provider, outcome).Inc()
	m.duration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
