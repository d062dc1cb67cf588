package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_created_total", Help: "Total rides created"})

	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "ride_transitions_total", Help: "Ride status transitions by outcome"},
		[]string{"transition", "outcome"},
	)

	LocationSamplesTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "location_samples_total", Help: "Total ride location samples recorded"})
	PaymentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "payments_recorded_total", Help: "Total payment records appended"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
