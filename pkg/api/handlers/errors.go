package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avcontrol/onkyo-bridge/pkg/api/types"
	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// writeError maps bridge errors onto HTTP responses. Sentinel classification
// happens here so individual handlers stay flat.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, device.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_argument",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrNotFound), errors.Is(err, device.ErrNotSupported):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrTemporarilyOffline):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "temporarily_offline",
			Message: err.Error(),
		})
	case errors.Is(err, device.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out waiting for receiver response",
		})
	default:
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "receiver_error",
			Message: err.Error(),
		})
	}
}
