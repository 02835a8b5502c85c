package bridge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/avcontrol/onkyo-bridge/pkg/db"
	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// fakeAdapter answers writes and actions synchronously through its event
// channel, mimicking the worker round-trip.
type fakeAdapter struct {
	events       chan device.Event
	writeStatus  device.CmdStatus
	actionResult string
	mute         bool // when set, requests get no response at all

	configUpdates chan device.AdapterConfig
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		events:        make(chan device.Event, 64),
		writeStatus:   device.StatusSuccess,
		actionResult:  "23",
		configUpdates: make(chan device.AdapterConfig, 4),
	}
}

func (f *fakeAdapter) Start() error     { return nil }
func (f *fakeAdapter) Stop()            {}
func (f *fakeAdapter) RequestFullSync() {}

func (f *fakeAdapter) ConfigUpdated(cfg device.AdapterConfig) {
	f.configUpdates <- cfg
}

func (f *fakeAdapter) WriteChannel(deviceID, channelID string, value any, cmdID string) {
	if f.mute {
		return
	}
	ev := device.CommandResultEvent{CmdID: cmdID, Status: f.writeStatus, Timestamp: time.Now()}
	if f.writeStatus == device.StatusSuccess {
		ev.FinalValue = value
	} else {
		ev.Error = "receiver unavailable"
	}
	f.events <- ev
}

func (f *fakeAdapter) InvokeAction(actionID string, params map[string]any, cmdID string) {
	if f.mute {
		return
	}
	f.events <- device.ActionResultEvent{
		CmdID:     cmdID,
		ActionID:  actionID,
		Status:    device.StatusSuccess,
		Result:    f.actionResult,
		Timestamp: time.Now(),
	}
}

func (f *fakeAdapter) Events() <-chan device.Event { return f.events }
func (f *fakeAdapter) IsConnected() bool           { return true }

func startBridge(t *testing.T, adapter device.Adapter, store *db.DB, receiverID int64) *Bridge {
	t.Helper()
	b := New(adapter, store, receiverID, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-b.Done()
	})
	return b
}

func TestWriteChannel_Correlated(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	value, err := b.WriteChannel(context.Background(), device.ChannelPower, true)
	if err != nil {
		t.Fatal(err)
	}
	if value != true {
		t.Errorf("value = %v, want true", value)
	}
}

func TestWriteChannel_ErrorMapping(t *testing.T) {
	fake := newFakeAdapter()
	fake.writeStatus = device.StatusTemporarilyOffline
	b := startBridge(t, fake, nil, 0)

	_, err := b.WriteChannel(context.Background(), device.ChannelPower, true)
	if !errors.Is(err, device.ErrTemporarilyOffline) {
		t.Errorf("got %v, want ErrTemporarilyOffline", err)
	}
}

func TestWriteChannel_ContextCancellation(t *testing.T) {
	fake := newFakeAdapter()
	fake.mute = true
	b := startBridge(t, fake, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := b.WriteChannel(ctx, device.ChannelPower, true)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestInvokeAction_Correlated(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	result, err := b.InvokeAction(context.Background(), "probeCurrentInput", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result != "23" {
		t.Errorf("result = %q, want 23", result)
	}
}

func TestApplyState_OrderAndValues(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	applied, err := b.ApplyState(context.Background(), map[string]any{
		"volume": float64(35),
		"power":  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if applied["power"] != true || applied["volume"] != float64(35) {
		t.Errorf("applied = %v", applied)
	}
}

func TestStateAccumulation(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	fake.events <- device.SnapshotEvent{
		Device:   device.Device{ID: "r1", Name: "Receiver"},
		Channels: []device.Channel{{ID: device.ChannelPower}},
	}
	fake.events <- device.ChannelStateEvent{DeviceID: "r1", ChannelID: device.ChannelPower, Value: true, Timestamp: time.Now()}
	fake.events <- device.ConnectivityEvent{Connected: true, Timestamp: time.Now()}
	fake.events <- device.FullSyncEvent{}

	waitFor(t, func() bool {
		state := b.State()
		return b.DeviceID() == "r1" &&
			state[device.ChannelPower] == true &&
			state[device.ChannelConnectivity] == "connected" &&
			b.IsConnected() && b.IsSynced()
	})
}

func TestChannelConfigReplacesChannel(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	fake.events <- device.SnapshotEvent{
		Device:   device.Device{ID: "r1"},
		Channels: []device.Channel{{ID: device.ChannelInput, Name: "Input"}},
	}
	fake.events <- device.ChannelConfigEvent{
		DeviceID: "r1",
		Channel: device.Channel{
			ID:      device.ChannelInput,
			Name:    "Input",
			Choices: []device.ChannelOption{{Label: "GAME", Value: "02"}},
		},
	}

	waitFor(t, func() bool {
		channels := b.Channels()
		return len(channels) == 1 && len(channels[0].Choices) == 1
	})
}

func TestSubscribe_ReceivesEnvelopes(t *testing.T) {
	fake := newFakeAdapter()
	b := startBridge(t, fake, nil, 0)

	events, cancel := b.Subscribe()
	defer cancel()

	fake.events <- device.ConnectivityEvent{Connected: true, Timestamp: time.Now()}

	select {
	case env := <-events:
		if env.Type != "connectivity" {
			t.Errorf("envelope type = %q", env.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no envelope received")
	}
}

func TestMetaPatch_PersistsAndReconfigures(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "bridge.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	id, err := database.CreateReceiver(ctx, &db.Receiver{Name: "R", Host: "10.0.0.9"})
	if err != nil {
		t.Fatal(err)
	}

	fake := newFakeAdapter()
	startBridge(t, fake, database, id)

	fake.events <- device.MetaPatchEvent{Patch: map[string]any{
		"activeSliCodes": []string{"23"},
		"inputLabel_23":  "SLI 23",
	}}

	// The patch lands in the store and comes back as an adapter config.
	select {
	case cfg := <-fake.configUpdates:
		if cfg.Host != "10.0.0.9" {
			t.Errorf("config host = %q", cfg.Host)
		}
		codes, ok := cfg.Meta["activeSliCodes"].([]any)
		if !ok || len(codes) != 1 || codes[0] != "23" {
			t.Errorf("activeSliCodes = %v", cfg.Meta["activeSliCodes"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("adapter never received updated config")
	}

	meta, err := database.ReceiverMeta(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if meta["inputLabel_23"] != "SLI 23" {
		t.Errorf("persisted label = %v", meta["inputLabel_23"])
	}
}

// waitFor polls the condition until it holds or the test deadline hits.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never held")
}
