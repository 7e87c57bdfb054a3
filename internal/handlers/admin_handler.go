package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalogix/backend/internal/services"
)

type AdminHandler struct {
	purgeService   *services.PurgeService
	metricsService *services.MetricsService
}

func NewAdminHandler(purgeService *services.PurgeService, metricsService *services.MetricsService) *AdminHandler {
	return &AdminHandler{
		purgeService:   purgeService,
		metricsService: metricsService,
	}
}

type PurgeRequest struct {
	DryRun       bool   `json:"dry_run"`
	ConfirmToken string `json:"confirm_token"`
}

// Purge deletes assets with a zero reference count. Destructive runs require
// the configured confirmation token.
// POST /v1/purge
func (h *AdminHandler) Purge(c *gin.Context) {
	var req PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.purgeService.Purge(c.Request.Context(), req.DryRun, req.ConfirmToken)
	if err != nil {
		if errors.Is(err, services.ErrBadConfirmToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Metrics reports per-tenant asset counts and rendition bytes per preset.
// GET /v1/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	report, err := h.metricsService.Metrics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute metrics"})
		return
	}

	c.JSON(http.StatusOK, report)
}
