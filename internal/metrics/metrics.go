package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alchemist_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alchemist_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alchemist_turns_total",
			Help: "Total number of conversation turns by outcome.",
		},
		[]string{"outcome"},
	)

	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alchemist_turn_duration_seconds",
			Help:    "End-to-end conversation turn duration in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alchemist_completions_total",
			Help: "Total number of completion calls by purpose and status.",
		},
		[]string{"purpose", "status"},
	)

	CatalogResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alchemist_catalog_results",
			Help:    "Number of products returned per catalog search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	PersonalizationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alchemist_personalization_total",
			Help: "Affinity facet lookups by source (live, fallback, none).",
		},
		[]string{"source"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alchemist_sessions_active",
			Help: "Number of user sessions held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TurnsTotal,
		TurnDuration,
		CompletionsTotal,
		CatalogResults,
		PersonalizationTotal,
		SessionsActive,
	)
}
