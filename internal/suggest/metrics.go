package suggest

import "github.com/prometheus/client_golang/prometheus"

var (
	suggestRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suggestd",
			Subsystem: "suggest",
			Name:      "requests_total",
			Help:      "Suggestions served, by source",
		},
		[]string{"source"},
	)

	providerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suggestd",
			Subsystem: "suggest",
			Name:      "provider_errors_total",
			Help:      "Provider failures that triggered the fallback, by kind",
		},
		[]string{"kind"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "suggestd",
			Subsystem: "suggest",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups, by result",
		},
		[]string{"result"},
	)

	upstreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "suggestd",
			Subsystem: "suggest",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		},
	)
)

func init() {
	prometheus.MustRegister(suggestRequestsTotal, providerErrorsTotal, cacheLookupsTotal, upstreamDuration)
}
