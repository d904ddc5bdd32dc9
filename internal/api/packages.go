package api

import (
	"net/http"

	"tourpack-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createPackage(c *gin.Context) {
	var req service.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pkg, err := h.packages.Create(c.Request.Context(), callerEmail(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

func (h *Handler) getPackage(c *gin.Context) {
	pkg, err := h.packages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *Handler) listPackages(c *gin.Context) {
	pkgs, err := h.packages.ListByGuide(c.Request.Context(), callerEmail(c), c.Query("guideEmail"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkgs)
}

func (h *Handler) updatePackage(c *gin.Context) {
	var req service.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pkg, err := h.packages.Update(c.Request.Context(), callerEmail(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *Handler) deletePackage(c *gin.Context) {
	if err := h.packages.Delete(c.Request.Context(), callerEmail(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
