package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification stages. Dispatch is the post-commit hand-off from the order service,
// which is the delivery itself when mail is sent directly. Delivery is the Kafka
// worker mailing a consumed event.
const (
	NotifyStageDispatch = "dispatch"
	NotifyStageDelivery = "delivery"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders committed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected or failed order placements",
	}, []string{"reason"})

	OrderPlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_latency_seconds",
		Help:    "Latency of the order placement transaction",
		Buckets: prometheus.DefBuckets,
	})

	OrderTxRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_tx_retries_total",
		Help: "Total number of order transactions re-run after a deadlock, serialization or unique conflict",
	})

	OrderIdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_idempotent_replays_total",
		Help: "Total number of order requests answered from a stored idempotent result",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of order notifications completed, by stage",
	}, []string{"stage"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of order notifications that failed, by stage",
	}, []string{"stage", "reason"})

	NotificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_latency_seconds",
		Help:    "Latency of order notification hand-off and delivery",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CatalogCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
