package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SequenceIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_ids_issued_total",
		Help: "Total number of ids issued per sequence counter",
	}, []string{"counter"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_stock_adjustments_total",
		Help: "Total number of ingredient stock adjustments",
	}, []string{"direction"})

	NegativeStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_negative_stock_total",
		Help: "Total number of adjustments that left an ingredient below zero",
	})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_insufficient_stock_total",
		Help: "Total number of deductions rejected by the stock floor",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_low_stock_alerts_total",
		Help: "Total number of low stock alerts handled by the stock worker",
	})

	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_compensations_total",
		Help: "Total number of stock compensations after a failed multi-step mutation",
	}, []string{"result"})

	OptionsMutatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "options_mutated_total",
		Help: "Total number of option catalog mutations",
	}, []string{"action"})

	CustomizesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customizes_created_total",
		Help: "Total number of custom cakes composed",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected requests by entity",
	}, []string{"entity"})

	ArchiveMigrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archive_migrations_total",
		Help: "Total number of archive migrations",
	}, []string{"kind"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	FeedbackNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_notifications_total",
		Help: "Total number of feedback thank-you notifications",
	}, []string{"result"})

	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_latency_seconds",
		Help:    "Latency of composite store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total number of responses replayed for a repeated Idempotency-Key",
	})

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
