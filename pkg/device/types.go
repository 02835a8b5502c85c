package device

// Channel keys exposed by the receiver adapter.
const (
	ChannelPower        = "power"
	ChannelVolume       = "volume"
	ChannelMute         = "mute"
	ChannelInput        = "input"
	ChannelConnectivity = "connectivity"
)

// ChannelKind classifies what a channel controls.
type ChannelKind string

const (
	KindPowerOnOff   ChannelKind = "power_on_off"
	KindVolume       ChannelKind = "volume"
	KindMute         ChannelKind = "mute"
	KindInput        ChannelKind = "input"
	KindConnectivity ChannelKind = "connectivity"
)

// DataType is the value shape carried by a channel.
type DataType string

const (
	DataTypeBool   DataType = "bool"
	DataTypeFloat  DataType = "float"
	DataTypeString DataType = "string"
	DataTypeEnum   DataType = "enum"
)

// ConnectivityStatus is the value emitted on the connectivity channel.
type ConnectivityStatus int

const (
	ConnectivityDisconnected ConnectivityStatus = iota
	ConnectivityConnected
)

func (s ConnectivityStatus) String() string {
	if s == ConnectivityConnected {
		return "connected"
	}
	return "disconnected"
}

// Device describes the single receiver managed by an adapter instance.
type Device struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Manufacturer string         `json:"manufacturer"`
	Model        string         `json:"model,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// ChannelOption is one selectable value of an enum-like channel.
type ChannelOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Channel describes one controllable or observable aspect of a device.
type Channel struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     ChannelKind     `json:"kind"`
	DataType DataType        `json:"data_type"`
	Writable bool            `json:"writable"`
	Min      float64         `json:"min,omitempty"`
	Max      float64         `json:"max,omitempty"`
	Step     float64         `json:"step,omitempty"`
	Choices  []ChannelOption `json:"choices,omitempty"`
}

// CmdStatus is the outcome of a channel write or adapter action.
type CmdStatus string

const (
	StatusSuccess            CmdStatus = "success"
	StatusInvalidArgument    CmdStatus = "invalid_argument"
	StatusNotSupported       CmdStatus = "not_supported"
	StatusTemporarilyOffline CmdStatus = "temporarily_offline"
	StatusFailure            CmdStatus = "failure"
)

// AdapterConfig is the configuration surface an adapter reads. It is owned
// and validated by the host; Meta carries adapter-specific keys such as
// pollIntervalMs, volumeMaxRaw, activeSliCodes and inputLabel_<code>.
type AdapterConfig struct {
	DeviceID string
	Name     string
	Host     string
	Port     int
	Meta     map[string]any
}
