package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/metrics"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/version"
)

// Health returns the health status of the service and its dependencies
func (h *Handlers) Health(c *gin.Context) {
	report := h.health.GetOverallHealth(c.Request.Context())

	body := gin.H{
		"status":     report.Status,
		"service":    "eventstats-backend-go",
		"version":    version.GetVersion(),
		"components": report.Components,
	}
	if stats, ok := h.manager.CacheStats(); ok {
		body["cache"] = stats
	}

	if report.Status == metrics.StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	utils.SendSuccess(c, body)
}
