package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viral",
		Name:      "searches_total",
		Help:      "Total search requests by terminal status.",
	}, []string{"status"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "viral",
		Name:      "provider_requests_total",
		Help:      "Total upstream provider requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	AnalyzerFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "viral",
		Name:      "analyzer_fallbacks_total",
		Help:      "Total candidates scored with the fallback AI analysis.",
	})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "viral",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method", "path"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SearchesTotal,
		ProviderRequestsTotal,
		AnalyzerFallbacksTotal,
		HTTPRequestDuration,
	)
}
