package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attendance_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	MarksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Total number of rosters marked",
		},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_store_errors_total",
			Help: "Total number of failed store calls",
		},
		[]string{"op"},
	)

	LoginRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_login_rate_limit_hits_total",
			Help: "Total number of login attempts rejected by the rate limiter",
		},
	)
)
