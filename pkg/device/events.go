package device

import "time"

// Event is an outbound message from an adapter to its host. The host drains
// the adapter's event channel; no callback coupling exists in the other
// direction.
type Event interface {
	// EventType is a stable short name, also used as the message subject
	// suffix when events are forwarded onto a broker.
	EventType() string
}

// SnapshotEvent carries the device description and its channel list.
// Emitted once per sync cycle; re-emitting after sync is a no-op upstream.
type SnapshotEvent struct {
	Device   Device    `json:"device"`
	Channels []Channel `json:"channels"`
}

func (SnapshotEvent) EventType() string { return "snapshot" }

// ChannelStateEvent reports one channel value observed on the wire.
type ChannelStateEvent struct {
	DeviceID  string    `json:"device_id"`
	ChannelID string    `json:"channel_id"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func (ChannelStateEvent) EventType() string { return "channel_state" }

// ConnectivityEvent reports a presence state transition.
type ConnectivityEvent struct {
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

func (ConnectivityEvent) EventType() string { return "connectivity" }

// FullSyncEvent signals that the initial snapshot cycle completed.
type FullSyncEvent struct{}

func (FullSyncEvent) EventType() string { return "full_sync" }

// CommandResultEvent is the response to a WriteChannel request, correlated
// by the caller-supplied command id.
type CommandResultEvent struct {
	CmdID      string    `json:"cmd_id"`
	Status     CmdStatus `json:"status"`
	FinalValue any       `json:"final_value,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (CommandResultEvent) EventType() string { return "command_result" }

// ActionResultEvent is the response to an InvokeAction request.
type ActionResultEvent struct {
	CmdID     string    `json:"cmd_id"`
	ActionID  string    `json:"action_id"`
	Status    CmdStatus `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (ActionResultEvent) EventType() string { return "action_result" }

// ChannelConfigEvent carries an updated channel definition (for example a
// rebuilt input choice list) for a device that is already synced.
type ChannelConfigEvent struct {
	DeviceID string  `json:"device_id"`
	Channel  Channel `json:"channel"`
}

func (ChannelConfigEvent) EventType() string { return "channel_config" }

// MetaPatchEvent asks the host to merge the patch into the adapter's
// persisted configuration.
type MetaPatchEvent struct {
	Patch map[string]any `json:"patch"`
}

func (MetaPatchEvent) EventType() string { return "meta_patch" }
