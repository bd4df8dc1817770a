package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/internal/websocket"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
)

// WebSocketHandler upgrades live report connections
func (h *Handlers) WebSocketHandler() gin.HandlerFunc {
	if h.hub == nil {
		return func(c *gin.Context) {
			utils.SendError(c, http.StatusServiceUnavailable, "Live updates are not available")
		}
	}
	return websocket.HandleWebSocketGin(h.hub)
}

// GetWebSocketStats returns hub statistics, with the subscriber count of
// one project when ?projectId= is given
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	if h.hub == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Live updates are not available")
		return
	}

	body := gin.H{"hub": h.hub.GetStats()}
	if projectID := c.Query("projectId"); projectID != "" {
		body["projectId"] = projectID
		body["projectClients"] = h.hub.ProjectClients(projectID)
	}
	utils.SendSuccess(c, body)
}
