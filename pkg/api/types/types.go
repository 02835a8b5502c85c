package types

import (
	"time"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Receiver  string    `json:"receiver"`
	Synced    bool      `json:"synced"`
	Timestamp time.Time `json:"timestamp"`
}

// ReceiverResponse is returned from GET /receiver
type ReceiverResponse struct {
	Device    device.Device    `json:"device"`
	Channels  []device.Channel `json:"channels"`
	Connected bool             `json:"connected"`
}

// StateResponse is returned from GET/POST /receiver/state
type StateResponse struct {
	Device    string         `json:"device"`
	State     map[string]any `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProbeResponse is returned from POST /receiver/actions/probe-input
type ProbeResponse struct {
	Input     string    `json:"input"`
	Timestamp time.Time `json:"timestamp"`
}
