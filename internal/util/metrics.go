package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sessions_created_total",
		Help: "Total number of payment sessions created",
	})

	PaymentSessionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sessions_failed_total",
		Help: "Total number of failed payment session creations",
	}, []string{"reason"})

	NotificationsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_notifications_received_total",
		Help: "Total number of gateway notifications received",
	})

	NotificationsReconciledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_reconciled_total",
		Help: "Total number of notifications reconciled, by resulting order status",
	}, []string{"status"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_failed_total",
		Help: "Total number of notifications that failed processing",
	}, []string{"reason"})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of requests to the payment gateway",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

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
