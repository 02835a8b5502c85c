package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avcontrol/onkyo-bridge/pkg/api/types"
	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/eiscp"
)

// ActionsHandler handles receiver action endpoints
type ActionsHandler struct {
	bridge *bridge.Bridge
}

// NewActionsHandler creates a new actions handler
func NewActionsHandler(b *bridge.Bridge) *ActionsHandler {
	return &ActionsHandler{bridge: b}
}

// ProbeInput handles POST /receiver/actions/probe-input. Queries the
// receiver for its current input selection and returns the resolved code.
func (h *ActionsHandler) ProbeInput(c *gin.Context) {
	result, err := h.bridge.InvokeAction(c.Request.Context(), eiscp.ActionProbeInput, nil)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ProbeResponse{
		Input:     result,
		Timestamp: time.Now(),
	})
}
