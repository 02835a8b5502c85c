package mcp

import "github.com/avcontrol/onkyo-bridge/pkg/device"

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Receiver  string `json:"receiver" jsonschema:"description=Receiver connectivity (connected or disconnected)"`
	Synced    bool   `json:"synced" jsonschema:"description=Whether the initial snapshot completed"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- Get Receiver Tool ---

// ChannelInfo represents a channel in tool outputs
type ChannelInfo struct {
	ID       string       `json:"id" jsonschema:"description=Channel identifier"`
	Name     string       `json:"name" jsonschema:"description=Display name"`
	DataType string       `json:"data_type" jsonschema:"description=Value shape (bool/float/string/enum)"`
	Writable bool         `json:"writable" jsonschema:"description=Whether the channel accepts writes"`
	Min      float64      `json:"min,omitempty" jsonschema:"description=Minimum value for numeric channels"`
	Max      float64      `json:"max,omitempty" jsonschema:"description=Maximum value for numeric channels"`
	Choices  []ChoiceInfo `json:"choices,omitempty" jsonschema:"description=Selectable values for enum-like channels"`
}

// ChoiceInfo is one selectable channel value
type ChoiceInfo struct {
	Label string `json:"label" jsonschema:"description=Display label"`
	Value string `json:"value" jsonschema:"description=Wire value"`
}

// GetReceiverOutput is the output for the get_receiver tool
type GetReceiverOutput struct {
	ID           string        `json:"id" jsonschema:"description=Receiver identifier"`
	Name         string        `json:"name" jsonschema:"description=Receiver display name"`
	Manufacturer string        `json:"manufacturer" jsonschema:"description=Manufacturer"`
	Model        string        `json:"model,omitempty" jsonschema:"description=Model designation when known"`
	Connected    bool          `json:"connected" jsonschema:"description=Current connectivity"`
	Channels     []ChannelInfo `json:"channels" jsonschema:"description=Controllable and observable channels"`
}

// --- Get State Tool ---

// GetStateOutput is the output for the get_state tool
type GetStateOutput struct {
	State map[string]any `json:"state" jsonschema:"description=Last known channel values"`
}

// --- Write Tools ---

// WriteOutput is the shared output for single-channel write tools
type WriteOutput struct {
	Channel string `json:"channel" jsonschema:"description=Channel that was written"`
	Value   any    `json:"value" jsonschema:"description=Value applied"`
}

// SetStateOutput is the output for the set_state tool
type SetStateOutput struct {
	State map[string]any `json:"state" jsonschema:"description=Values applied per channel"`
}

// --- Probe Tool ---

// ProbeInputOutput is the output for the probe_input tool
type ProbeInputOutput struct {
	Input string `json:"input" jsonschema:"description=Currently selected input code"`
	Label string `json:"label,omitempty" jsonschema:"description=Display label for the input when known"`
}

// channelsToInfo converts channel definitions to tool output shape
func channelsToInfo(channels []device.Channel) []ChannelInfo {
	infos := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		info := ChannelInfo{
			ID:       ch.ID,
			Name:     ch.Name,
			DataType: string(ch.DataType),
			Writable: ch.Writable,
			Min:      ch.Min,
			Max:      ch.Max,
		}
		for _, choice := range ch.Choices {
			info.Choices = append(info.Choices, ChoiceInfo{Label: choice.Label, Value: choice.Value})
		}
		infos = append(infos, info)
	}
	return infos
}
