package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BidsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Total number of committed bids",
		},
	)

	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Total number of rejected bids by reason",
		},
		[]string{"reason"},
	)

	CommitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_commit_failures_total",
			Help: "Total number of bid commits that failed in storage",
		},
	)

	CommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_commit_seconds",
			Help:    "Time from acquiring an auction's slot to commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_live_subscribers",
			Help: "Open live-update subscriptions",
		},
	)

	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_events_published_total",
			Help: "Total events published to the broadcast hub",
		},
	)

	SubscribersPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_subscribers_pruned_total",
			Help: "Subscriptions dropped because delivery failed",
		},
	)

	RelayPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_relay_publish_failures_total",
			Help: "Events the rabbit relay failed to forward",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
