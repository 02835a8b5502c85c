package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
	"github.com/avcontrol/onkyo-bridge/pkg/eiscp"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	receiverStatus := "disconnected"
	if s.bridge.IsConnected() {
		receiverStatus = "connected"
	}

	status := "healthy"
	if receiverStatus != "connected" {
		status = "unhealthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Receiver:  receiverStatus,
		Synced:    s.bridge.IsSynced(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetReceiver(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dev := s.bridge.Device()
	if dev.ID == "" {
		return mcp.NewToolResultError("receiver not synced yet"), nil
	}

	out := GetReceiverOutput{
		ID:           dev.ID,
		Name:         dev.Name,
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Connected:    s.bridge.IsConnected(),
		Channels:     channelsToInfo(s.bridge.Channels()),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := GetStateOutput{State: s.bridge.State()}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetPower(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	on, err := requiredBool(request, "on")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.writeChannel(ctx, device.ChannelPower, on)
}

func (s *Server) handleSetVolume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	volume, err := requiredNumber(request, "volume")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.writeChannel(ctx, device.ChannelVolume, volume)
}

func (s *Server) handleSetMute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mute, err := requiredBool(request, "mute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.writeChannel(ctx, device.ChannelMute, mute)
}

func (s *Server) handleSetInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := requiredString(request, "input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.writeChannel(ctx, device.ChannelInput, input)
}

func (s *Server) writeChannel(ctx context.Context, channelID string, value any) (*mcp.CallToolResult, error) {
	applied, err := s.bridge.WriteChannel(ctx, channelID, value)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set %s: %s", channelID, err)), nil
	}

	out := WriteOutput{Channel: channelID, Value: applied}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	stateRaw, ok := args["state"]
	if !ok {
		return mcp.NewToolResultError(`required parameter "state" is missing`), nil
	}
	stateMap, ok := stateRaw.(map[string]any)
	if !ok || len(stateMap) == 0 {
		return mcp.NewToolResultError(`parameter "state" must be a non-empty object`), nil
	}

	if s.validator != nil {
		if err := s.validator.ValidateState(stateMap); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
		}
	}

	applied, err := s.bridge.ApplyState(ctx, stateMap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set state: %s", err)), nil
	}

	out := SetStateOutput{State: applied}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleProbeInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := s.bridge.InvokeAction(ctx, eiscp.ActionProbeInput, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to probe input: %s", err)), nil
	}

	out := ProbeInputOutput{Input: code, Label: s.inputLabel(code)}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// inputLabel resolves a code to its display label from the synced input
// channel, or "" when unknown.
func (s *Server) inputLabel(code string) string {
	for _, ch := range s.bridge.Channels() {
		if ch.ID != device.ChannelInput {
			continue
		}
		for _, choice := range ch.Choices {
			if choice.Value == code {
				return choice.Label
			}
		}
	}
	return ""
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func requiredBool(request mcp.CallToolRequest, key string) (bool, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return false, fmt.Errorf("required parameter %q is missing", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean", key)
	}
	return b, nil
}

func requiredNumber(request mcp.CallToolRequest, key string) (float64, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required parameter %q is missing", key)
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
	return n, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
