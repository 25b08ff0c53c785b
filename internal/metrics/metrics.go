package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchearn_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchearn_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AdViewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watchearn_ad_views_completed_total",
			Help: "Total number of ad views credited by the ledger.",
		},
	)

	PointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchearn_points_awarded_total",
			Help: "Total points credited, labeled by reward tier.",
		},
		[]string{"tier"},
	)

	ClaimRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchearn_claim_rejections_total",
			Help: "Completion claims rejected by the ledger.",
		},
		[]string{"reason"},
	)

	VerifyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchearn_verify_requests_total",
			Help: "Ad view verification requests, labeled by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AdViewsCompletedTotal,
		PointsAwardedTotal,
		ClaimRejectionsTotal,
		VerifyRequestsTotal,
	)
}
