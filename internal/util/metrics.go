package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SpinsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spins_issued_total",
		Help: "Total number of discount codes issued by spins",
	}, []string{"percentage"})

	SpinsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spins_rejected_total",
		Help: "Total number of rejected spin requests",
	}, []string{"reason"})

	SpinCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spin_cache_lookups_total",
		Help: "Cooldown cache lookups by result",
	}, []string{"result"})

	DiscountValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_validations_total",
		Help: "Total number of discount validations by outcome",
	}, []string{"outcome"})

	DiscountsRedeemedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discounts_redeemed_total",
		Help: "Total number of discount codes marked used",
	})

	BookingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created by status",
	}, []string{"status"})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking confirmations",
	}, []string{"reason"})

	BookingsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_completed_total",
		Help: "Total number of bookings marked completed",
	})

	SeatsBookedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seats_booked_total",
		Help: "Total number of seats taken by confirmed bookings",
	})

	BookingConfirmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_confirm_latency_seconds",
		Help:    "Latency of booking confirmation",
		Buckets: prometheus.DefBuckets,
	})

	PaymentIntentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Total number of payment intents created",
	})

	PaymentGatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications emitted by the worker",
	}, []string{"event_type"})

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
