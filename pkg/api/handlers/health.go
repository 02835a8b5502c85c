package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avcontrol/onkyo-bridge/pkg/api/types"
	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	bridge *bridge.Bridge
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(b *bridge.Bridge) *HealthHandler {
	return &HealthHandler{bridge: b}
}

// Health handles GET /health. A reachable API with an unreachable receiver
// reports degraded with 503 so load balancers can act on it.
func (h *HealthHandler) Health(c *gin.Context) {
	receiverStatus := "disconnected"
	if h.bridge.IsConnected() {
		receiverStatus = "connected"
	}

	status := "healthy"
	httpStatus := http.StatusOK

	if receiverStatus != "connected" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Receiver:  receiverStatus,
		Synced:    h.bridge.IsSynced(),
		Timestamp: time.Now(),
	})
}
