package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// ActiveConfig assembles the adapter configuration for the active receiver:
// the receiver row supplies the connection columns, the meta table supplies
// adapter-specific keys.
func (db *DB) ActiveConfig(ctx context.Context) (device.AdapterConfig, *Receiver, error) {
	receiver, err := db.GetActiveReceiver(ctx)
	if err != nil {
		return device.AdapterConfig{}, nil, err
	}

	cfg, err := db.AdapterConfigFor(ctx, receiver)
	if err != nil {
		return device.AdapterConfig{}, nil, err
	}
	return cfg, receiver, nil
}

// AdapterConfigFor builds an adapter configuration for the given receiver row.
func (db *DB) AdapterConfigFor(ctx context.Context, receiver *Receiver) (device.AdapterConfig, error) {
	meta, err := db.ReceiverMeta(ctx, receiver.ID)
	if err != nil {
		return device.AdapterConfig{}, fmt.Errorf("failed to load receiver meta: %w", err)
	}

	// Column-backed settings win over stale meta entries.
	meta["pollIntervalMs"] = receiver.PollIntervalMs
	meta["retryIntervalMs"] = receiver.RetryIntervalMs
	meta["volumeMaxRaw"] = receiver.VolumeMaxRaw
	if receiver.SerialPort != "" {
		meta["serialPort"] = receiver.SerialPort
	}
	if receiver.UseCRLF {
		meta["useCrlf"] = true
	}

	return device.AdapterConfig{
		DeviceID: "receiver-" + strconv.FormatInt(receiver.ID, 10),
		Name:     receiver.Name,
		Host:     receiver.Host,
		Port:     receiver.Port,
		Meta:     meta,
	}, nil
}
