package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tourpack-service/internal/auth"
	"tourpack-service/internal/service"
	"tourpack-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures router-wide behavior.
type Options struct {
	AllowOrigins   []string
	RequestTimeout time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	spins     *service.SpinService
	discounts *service.DiscountService
	packages  *service.PackageService
	bookings  *service.BookingService
	verifier  auth.Verifier
	db        Pinger
	opts      Options
}

// NewHandler creates a new HTTP handler
func NewHandler(
	spins *service.SpinService,
	discounts *service.DiscountService,
	packages *service.PackageService,
	bookings *service.BookingService,
	verifier auth.Verifier,
	db Pinger,
	opts Options,
) *Handler {
	return &Handler{
		spins:     spins,
		discounts: discounts,
		packages:  packages,
		bookings:  bookings,
		verifier:  verifier,
		db:        db,
		opts:      opts,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(h.opts.AllowOrigins))
	if h.opts.RequestTimeout > 0 {
		router.Use(timeoutMiddleware(h.opts.RequestTimeout))
	}

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/packages/:id", h.getPackage)

	authed := router.Group("/", authMiddleware(h.verifier))
	{
		authed.POST("/spin", h.spin)
		authed.GET("/spin/eligibility", h.spinEligibility)
		authed.GET("/spin/history", h.spinHistory)

		authed.POST("/discounts/validate", h.validateDiscount)
		authed.PATCH("/discounts/use/:code", h.useDiscount)

		authed.POST("/create-payment-intent", h.createPaymentIntent)
		authed.POST("/confirm-payment", h.confirmPayment)

		authed.POST("/packages", h.createPackage)
		authed.GET("/packages", h.listPackages)
		authed.PUT("/packages/:id", h.updatePackage)
		authed.DELETE("/packages/:id", h.deletePackage)

		authed.POST("/bookings", h.createBooking)
		authed.GET("/bookings", h.listBuyerBookings)
		authed.GET("/bookings/guide", h.listGuideBookings)
		authed.GET("/bookings/:id", h.getBooking)
		authed.PATCH("/bookings/:id/complete", h.completeBooking)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the store answers a ping
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
