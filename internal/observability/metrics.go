package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olc_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olc_transitions_total",
			Help: "Order lifecycle transitions by action and result",
		},
		[]string{"action", "result"},
	)

	CapacityRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olc_capacity_rejections_total",
			Help: "Reservations rejected because a ticket type was sold out",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "olc_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "olc_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	NotifyPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olc_notify_publish_failures_total",
			Help: "Notification publishes that failed",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "olc_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
