package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avcontrol/onkyo-bridge/pkg/api/types"
	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/device"
	"github.com/avcontrol/onkyo-bridge/pkg/device/schema"
)

// ReceiverHandler handles receiver description and state endpoints
type ReceiverHandler struct {
	bridge    *bridge.Bridge
	validator *schema.Validator
}

// NewReceiverHandler creates a new receiver handler
func NewReceiverHandler(b *bridge.Bridge, validator *schema.Validator) *ReceiverHandler {
	return &ReceiverHandler{bridge: b, validator: validator}
}

// GetReceiver handles GET /receiver. Returns the device description and
// channel list from the last snapshot.
func (h *ReceiverHandler) GetReceiver(c *gin.Context) {
	dev := h.bridge.Device()
	if dev.ID == "" {
		writeError(c, device.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, types.ReceiverResponse{
		Device:    dev,
		Channels:  h.bridge.Channels(),
		Connected: h.bridge.IsConnected(),
	})
}

// GetState handles GET /receiver/state. Returns the last known channel
// values; values the receiver has not reported yet are absent.
func (h *ReceiverHandler) GetState(c *gin.Context) {
	dev := h.bridge.Device()
	if dev.ID == "" {
		writeError(c, device.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, types.StateResponse{
		Device:    dev.ID,
		State:     h.bridge.State(),
		Timestamp: time.Now(),
	})
}

// SetState handles POST /receiver/state. Accepts a partial state document,
// validates it against the receiver schema and applies it channel by channel.
func (h *ReceiverHandler) SetState(c *gin.Context) {
	var req map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Empty state document",
		})
		return
	}

	dev := h.bridge.Device()
	if dev.ID == "" {
		writeError(c, device.ErrNotFound)
		return
	}

	if err := h.validator.ValidateState(req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	applied, err := h.bridge.ApplyState(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.StateResponse{
		Device:    dev.ID,
		State:     applied,
		Timestamp: time.Now(),
	})
}
