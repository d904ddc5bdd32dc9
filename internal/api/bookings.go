package api

import (
	"net/http"

	"tourpack-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createPaymentIntent(c *gin.Context) {
	var req service.PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.bookings.CreatePaymentIntent(c.Request.Context(), callerEmail(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) confirmPayment(c *gin.Context) {
	var req service.ConfirmBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookings.ConfirmBooking(c.Request.Context(), callerEmail(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": booking,
	})
}

func (h *Handler) createBooking(c *gin.Context) {
	var req service.PendingBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookings.CreatePendingBooking(c.Request.Context(), callerEmail(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) listBuyerBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBuyerBookings(c.Request.Context(), callerEmail(c), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) listGuideBookings(c *gin.Context) {
	bookings, err := h.bookings.ListGuideBookings(c.Request.Context(), callerEmail(c), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) getBooking(c *gin.Context) {
	booking, err := h.bookings.GetBooking(c.Request.Context(), callerEmail(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) completeBooking(c *gin.Context) {
	booking, err := h.bookings.CompleteBooking(c.Request.Context(), callerEmail(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
