package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaimaku",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "upstream_requests_total",
		Help:      "Catalog requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaimaku",
		Name:      "upstream_request_duration_seconds",
		Help:      "Catalog request duration in seconds, retries included.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"endpoint"})

	SearchStrategyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "search_strategy_total",
		Help:      "Search fallback steps by strategy and result.",
	}, []string{"strategy", "result"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "search_cache_hits_total",
		Help:      "Total number of search cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "search_cache_misses_total",
		Help:      "Total number of search cache misses.",
	})

	RatingsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "ratings_saved_total",
		Help:      "Total number of accepted rating submissions.",
	})

	CooldownRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaimaku",
		Name:      "cooldown_rejections_total",
		Help:      "Requests rejected by a cooldown gate.",
	}, []string{"gate"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		SearchStrategyTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		RatingsSavedTotal,
		CooldownRejectionsTotal,
	)
}
