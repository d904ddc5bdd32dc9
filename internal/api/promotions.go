package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type validateDiscountRequest struct {
	Code      string `json:"code" binding:"required"`
	PackageID string `json:"package_id" binding:"required"`
}

func (h *Handler) spin(c *gin.Context) {
	rec, err := h.spins.RequestSpin(c.Request.Context(), callerEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"discount_percentage": rec.DiscountPercentage,
		"code":                rec.Code,
		"valid_until":         rec.ValidUntil,
		"spin":                rec,
	})
}

func (h *Handler) spinEligibility(c *gin.Context) {
	el, err := h.spins.Eligibility(c.Request.Context(), callerEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, el)
}

func (h *Handler) spinHistory(c *gin.Context) {
	history, err := h.spins.History(c.Request.Context(), callerEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// validateDiscount answers 200 for both valid and invalid codes; the body
// carries the verdict.
func (h *Handler) validateDiscount(c *gin.Context) {
	var req validateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.discounts.Validate(c.Request.Context(), callerEmail(c), req.Code, req.PackageID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) useDiscount(c *gin.Context) {
	code := c.Param("code")
	if err := h.discounts.MarkUsed(c.Request.Context(), callerEmail(c), code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"used": true,
	})
}
