package eiscp

import (
	"regexp"
	"strings"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

const fallbackDeviceID = "onkyo-pioneer"

// emitSnapshot publishes the device description and channel list, once per
// sync cycle. Re-invoking while synced is a no-op.
func (a *Adapter) emitSnapshot() {
	if a.synced {
		return
	}

	a.deviceID = a.resolveDeviceID()
	a.emit(device.SnapshotEvent{Device: a.buildDevice(), Channels: a.buildChannels()})
	a.emit(device.FullSyncEvent{})
	a.synced = true
}

func (a *Adapter) resolveDeviceID() string {
	if a.cfg.DeviceUUID != "" {
		return a.cfg.DeviceUUID
	}
	if a.cfg.DeviceID != "" {
		return a.cfg.DeviceID
	}
	if a.cfg.Host != "" {
		return a.cfg.Host
	}
	return fallbackDeviceID
}

func (a *Adapter) buildDevice() device.Device {
	name := a.cfg.Name
	if name == "" {
		name = a.cfg.DeviceName
	}
	if name == "" {
		name = a.cfg.Host
	}

	manufacturer := a.cfg.Manufacturer
	if manufacturer == "" {
		manufacturer = "Onkyo & Pioneer"
	}

	model := a.cfg.Model
	if model == "" {
		candidates := []string{a.cfg.Host, a.cfg.DeviceUUID, a.cfg.DeviceName, a.cfg.Name}
		for _, candidate := range candidates {
			if model = inferModelFromIdentifier(candidate); model != "" {
				break
			}
		}
	}

	return device.Device{
		ID:           a.deviceID,
		Name:         name,
		Manufacturer: manufacturer,
		Model:        model,
	}
}

func (a *Adapter) buildChannels() []device.Channel {
	return []device.Channel{
		{
			ID:       device.ChannelPower,
			Name:     "Power",
			Kind:     device.KindPowerOnOff,
			DataType: device.DataTypeBool,
			Writable: true,
		},
		{
			ID:       device.ChannelVolume,
			Name:     "Volume",
			Kind:     device.KindVolume,
			DataType: device.DataTypeFloat,
			Writable: true,
			Min:      0,
			Max:      100,
			Step:     1,
		},
		{
			ID:       device.ChannelMute,
			Name:     "Mute",
			Kind:     device.KindMute,
			DataType: device.DataTypeBool,
			Writable: true,
		},
		a.buildInputChannel(),
		{
			ID:       device.ChannelConnectivity,
			Name:     "Connectivity",
			Kind:     device.KindConnectivity,
			DataType: device.DataTypeEnum,
			Writable: false,
		},
	}
}

// buildInputChannel lists the active input codes as choices, sorted by code.
func (a *Adapter) buildInputChannel() device.Channel {
	channel := device.Channel{
		ID:       device.ChannelInput,
		Name:     "Input",
		Kind:     device.KindInput,
		DataType: device.DataTypeString,
		Writable: true,
	}
	for _, code := range a.inputs.Codes() {
		label, _ := a.inputs.Label(code)
		if label == "" {
			label = GeneratedLabel(code)
		}
		channel.Choices = append(channel.Choices, device.ChannelOption{Label: label, Value: code})
	}
	return channel
}

var (
	modelPattern = regexp.MustCompile(`(?i)^(?:pioneer|onkyo)[-_ ]?(.+?)(?:-[0-9A-F]{4,12})?$`)
	digitPattern = regexp.MustCompile(`\d`)
)

// inferModelFromIdentifier extracts a model designation from identifiers
// like "Onkyo-TX-NR696-1A2B3C.local:60128".
func inferModelFromIdentifier(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndex(trimmed, ":"); idx > 0 {
		trimmed = trimmed[:idx]
	}
	if strings.HasSuffix(strings.ToLower(trimmed), ".local") {
		trimmed = trimmed[:len(trimmed)-len(".local")]
	}
	match := modelPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return ""
	}
	model := strings.TrimSpace(match[1])
	if model != "" && digitPattern.MatchString(model) {
		return model
	}
	return ""
}
