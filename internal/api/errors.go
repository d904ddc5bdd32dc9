package api

import (
	"net/http"

	"tourpack-service/internal/apperr"
	"tourpack-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Upstream causes are
// logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	var cooldown *apperr.CooldownError
	if apperr.As(err, &cooldown) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           cooldown.Error(),
			"hours_remaining": cooldown.HoursRemaining(),
			"next_spin_at":    cooldown.NextSpinAt,
		})
		return
	}

	var inventory *apperr.InsufficientInventoryError
	if apperr.As(err, &inventory) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           inventory.Error(),
			"available_seats": inventory.Available,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case apperr.Is(err, apperr.ErrAuthentication):
		status = http.StatusUnauthorized
	case apperr.Is(err, apperr.ErrAuthorization):
		status = http.StatusForbidden
	case apperr.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case apperr.Is(err, apperr.ErrValidation), apperr.Is(err, apperr.ErrPaymentNotSucceeded):
		status = http.StatusBadRequest
	case apperr.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		util.GetLogger().Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
