package eiscp

import (
	"net"
	"testing"
	"time"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// fakeTransport records commands and plays back canned reply payloads.
type fakeTransport struct {
	err     error
	replies [][]byte
	cmds    []string
}

func (f *fakeTransport) Execute(cmd string, expectReply bool, replyTimeout time.Duration, stop <-chan struct{}, onConnect func(), deliver func(payload []byte)) error {
	f.cmds = append(f.cmds, cmd)
	if f.err != nil {
		return f.err
	}
	if onConnect != nil {
		onConnect()
	}
	if expectReply {
		for _, reply := range f.replies {
			deliver(reply)
		}
	}
	return nil
}

func (f *fakeTransport) Close() {}

func newUnitAdapter(meta map[string]any) *Adapter {
	return New(device.AdapterConfig{
		DeviceID: "test-receiver",
		Name:     "Test Receiver",
		Meta:     meta,
	})
}

// drainEvents empties the buffered event channel.
func drainEvents(a *Adapter) []device.Event {
	var events []device.Event
	for {
		select {
		case ev := <-a.events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// waitEvent blocks until an event of type T arrives or the timeout expires.
func waitEvent[T device.Event](t *testing.T, events <-chan device.Event, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			if typed, ok := ev.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestStart_NoHostStaysOffline(t *testing.T) {
	a := newUnitAdapter(nil)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	snapshot := waitEvent[device.SnapshotEvent](t, a.Events(), time.Second)
	if snapshot.Device.ID != "test-receiver" {
		t.Errorf("device id = %q", snapshot.Device.ID)
	}
	if len(snapshot.Channels) != 5 {
		t.Errorf("got %d channels, want 5", len(snapshot.Channels))
	}
	waitEvent[device.FullSyncEvent](t, a.Events(), time.Second)

	if a.IsConnected() {
		t.Error("adapter must stay disconnected without a host")
	}
}

func TestRequestFullSync_SnapshotEmittedOnce(t *testing.T) {
	a := newUnitAdapter(nil)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	snapshots := 0
	deadline := time.After(time.Second)
waitSync:
	for {
		select {
		case ev := <-a.Events():
			switch ev.(type) {
			case device.SnapshotEvent:
				snapshots++
			case device.FullSyncEvent:
				break waitSync
			}
		case <-deadline:
			t.Fatal("timed out waiting for full sync")
		}
	}
	if snapshots != 1 {
		t.Fatalf("got %d snapshots before full sync, want 1", snapshots)
	}

	// Already synced: a redundant request must not re-emit. The sentinel op
	// proves the worker has processed the request before we drain.
	a.RequestFullSync()
	flushed := make(chan struct{})
	a.enqueue(func() { close(flushed) }, nil)
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("worker did not drain the op queue")
	}

	for _, ev := range drainEvents(a) {
		if _, ok := ev.(device.SnapshotEvent); ok {
			t.Error("redundant full sync re-emitted the snapshot")
		}
	}
}

func TestStart_DoubleStartFails(t *testing.T) {
	a := newUnitAdapter(nil)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	if err := a.Start(); err == nil {
		t.Error("second Start must fail")
	}
}

func TestWriteChannel_NoTransport(t *testing.T) {
	a := newUnitAdapter(nil)
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	waitEvent[device.FullSyncEvent](t, a.Events(), time.Second)

	a.WriteChannel("test-receiver", device.ChannelPower, true, "cmd-1")
	result := waitEvent[device.CommandResultEvent](t, a.Events(), time.Second)
	if result.CmdID != "cmd-1" {
		t.Errorf("cmd id = %q", result.CmdID)
	}
	if result.Status != device.StatusTemporarilyOffline {
		t.Errorf("status = %q, want temporarily_offline", result.Status)
	}
}

func TestSnapshot_InputChoicesFollowAllowList(t *testing.T) {
	a := newUnitAdapter(map[string]any{
		"activeSliCodes": []any{"02", "23"},
		"inputLabel_23":  "Apple TV",
	})
	a.emitSnapshot()

	snapshot := waitEvent[device.SnapshotEvent](t, a.Events(), time.Second)
	var input device.Channel
	for _, ch := range snapshot.Channels {
		if ch.ID == device.ChannelInput {
			input = ch
		}
	}
	if len(input.Choices) != 2 {
		t.Fatalf("got %d input choices, want 2: %+v", len(input.Choices), input.Choices)
	}
	if input.Choices[0].Value != "02" || input.Choices[0].Label != "GAME" {
		t.Errorf("choice[0] = %+v", input.Choices[0])
	}
	if input.Choices[1].Value != "23" || input.Choices[1].Label != "Apple TV" {
		t.Errorf("choice[1] = %+v", input.Choices[1])
	}
}

func TestHandleWrite_UnknownDevice(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	drainEvents(a)

	a.handleWrite("someone-else", device.ChannelPower, true, "cmd-1")
	result := waitEvent[device.CommandResultEvent](t, a.Events(), time.Second)
	if result.Status != device.StatusNotSupported {
		t.Errorf("status = %q, want not_supported", result.Status)
	}
}

func TestHandleWrite_InvalidArgument(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	drainEvents(a)

	a.handleWrite("test-receiver", device.ChannelVolume, "loud", "cmd-1")
	result := waitEvent[device.CommandResultEvent](t, a.Events(), time.Second)
	if result.Status != device.StatusInvalidArgument {
		t.Errorf("status = %q, want invalid_argument", result.Status)
	}
}

func TestHandleWrite_Success(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	fake := &fakeTransport{}
	a.transport = fake
	drainEvents(a)

	a.handleWrite("test-receiver", device.ChannelPower, true, "cmd-1")
	result := waitEvent[device.CommandResultEvent](t, a.events, time.Second)
	if result.Status != device.StatusSuccess {
		t.Fatalf("status = %q: %s", result.Status, result.Error)
	}
	if result.FinalValue != true {
		t.Errorf("final value = %v, want true", result.FinalValue)
	}
	if len(fake.cmds) != 1 || fake.cmds[0] != "PWR01" {
		t.Errorf("sent commands = %v, want [PWR01]", fake.cmds)
	}
	if !a.connected {
		t.Error("reaching the receiver must mark it connected")
	}
}

func TestExecute_FailureDoesNotFlipPresence(t *testing.T) {
	a := newUnitAdapter(nil)
	a.transport = &fakeTransport{}
	a.markSeen()
	if !a.connected {
		t.Fatal("markSeen must connect")
	}
	drainEvents(a)

	a.transport = &fakeTransport{err: net.ErrClosed}
	if a.execute("PWRQSTN", true, time.Millisecond) {
		t.Error("execute must report failure")
	}
	if !a.connected {
		t.Error("a single failed transaction must not flip presence")
	}
}

func TestExecute_RetryBackoffGate(t *testing.T) {
	a := newUnitAdapter(nil)
	fake := &fakeTransport{}
	a.transport = fake
	a.lastAttempt = time.Now()

	// Disconnected and inside the retry window: no I/O at all.
	if a.execute("PWRQSTN", true, time.Millisecond) {
		t.Error("execute must refuse inside the retry window")
	}
	if len(fake.cmds) != 0 {
		t.Errorf("transport was invoked: %v", fake.cmds)
	}
}

func TestCheckPresence_FlipsAfterTimeout(t *testing.T) {
	a := newUnitAdapter(nil)
	a.transport = &fakeTransport{}
	a.markSeen()
	drainEvents(a)

	// Fresh sighting: no flip.
	a.checkPresence()
	if !a.connected {
		t.Fatal("presence must hold while within the timeout")
	}

	a.lastSeen = time.Now().Add(-(a.presenceTimeout + time.Second))
	a.checkPresence()
	if a.connected {
		t.Error("presence must drop after sustained silence")
	}

	ev := waitEvent[device.ConnectivityEvent](t, a.events, time.Second)
	if ev.Connected {
		t.Error("connectivity event must report disconnected")
	}
}

func TestCheckPresence_NeverSeenIsNoop(t *testing.T) {
	a := newUnitAdapter(nil)
	a.checkPresence()
	if a.connected {
		t.Error("presence must stay down before any sighting")
	}
}

func TestHandleAction_ProbeInput(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	a.transport = &fakeTransport{replies: [][]byte{[]byte("!1SLI23\r")}}
	drainEvents(a)

	a.handleAction(ActionProbeInput, nil, "cmd-1")

	patch := waitEvent[device.MetaPatchEvent](t, a.events, time.Second)
	codes, ok := patch.Patch["activeSliCodes"].([]string)
	if !ok || len(codes) != 1 || codes[0] != "23" {
		t.Errorf("activeSliCodes patch = %v", patch.Patch["activeSliCodes"])
	}
	if label := patch.Patch["inputLabel_23"]; label != "SLI 23" {
		t.Errorf("label patch = %v", label)
	}

	result := waitEvent[device.ActionResultEvent](t, a.events, time.Second)
	if result.Status != device.StatusSuccess || result.Result != "23" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleAction_ProbeFallsBackToPreviousCode(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	a.translator.SetLastInputCode("10")
	a.transport = &fakeTransport{} // reachable, but no reply payloads
	drainEvents(a)

	a.handleAction(ActionProbeInput, nil, "cmd-1")
	result := waitEvent[device.ActionResultEvent](t, a.events, time.Second)
	if result.Status != device.StatusSuccess || result.Result != "10" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleAction_Unknown(t *testing.T) {
	a := newUnitAdapter(nil)
	a.emitSnapshot()
	drainEvents(a)

	a.handleAction("selfDestruct", nil, "cmd-1")
	result := waitEvent[device.ActionResultEvent](t, a.events, time.Second)
	if result.Status != device.StatusNotSupported {
		t.Errorf("status = %q, want not_supported", result.Status)
	}
}

// startFakeReceiver runs a minimal eISCP endpoint that answers state queries
// with fixed values, one connection per transaction.
func startFakeReceiver(t *testing.T) (host string, port int) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	answers := map[string]string{
		"PWRQSTN": "PWR01",
		"AMTQSTN": "AMT00",
		"MVLQSTN": "MVL50",
		"SLIQSTN": "SLI23",
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 2048)
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				n, err := conn.Read(buf)
				if err != nil || n == 0 {
					return
				}
				for _, payload := range DecodeFrames(buf[:n], true) {
					for _, line := range SplitPayload(payload) {
						if answer, ok := answers[line]; ok {
							_, _ = conn.Write(EncodeCommand(answer, true, false))
						}
					}
				}
			}(conn)
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestAdapter_EndToEndTCP(t *testing.T) {
	host, port := startFakeReceiver(t)

	a := New(device.AdapterConfig{
		DeviceID: "itest",
		Name:     "Integration Receiver",
		Host:     host,
		Port:     port,
		Meta: map[string]any{
			"pollIntervalMs":  500,
			"retryIntervalMs": 1000,
		},
	})
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	waitEvent[device.FullSyncEvent](t, a.Events(), time.Second)

	// A write both succeeds and establishes presence. The connectivity
	// transition is emitted before the command result.
	a.WriteChannel("itest", device.ChannelPower, true, "cmd-power")
	conn := waitEvent[device.ConnectivityEvent](t, a.Events(), 3*time.Second)
	if !conn.Connected {
		t.Error("expected connected after a successful transaction")
	}
	result := waitEvent[device.CommandResultEvent](t, a.Events(), 3*time.Second)
	if result.Status != device.StatusSuccess {
		t.Fatalf("write status = %q: %s", result.Status, result.Error)
	}
	if !a.IsConnected() {
		t.Error("IsConnected must report true")
	}

	// Probing resolves the current input from the wire.
	a.InvokeAction(ActionProbeInput, nil, "cmd-probe")
	action := waitEvent[device.ActionResultEvent](t, a.Events(), 5*time.Second)
	if action.Status != device.StatusSuccess {
		t.Fatalf("probe status = %q: %s", action.Status, action.Error)
	}
	if action.Result != "23" {
		t.Errorf("probe result = %q, want 23", action.Result)
	}
}

func TestAdapter_PollObservesState(t *testing.T) {
	host, port := startFakeReceiver(t)

	a := New(device.AdapterConfig{
		DeviceID: "poll-test",
		Host:     host,
		Port:     port,
		Meta: map[string]any{
			"pollIntervalMs":  500,
			"retryIntervalMs": 1000,
		},
	})
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()

	// The poll driver queries all four channels; wait for the volume value
	// to arrive (0x50 = 80 raw of 160 = 50%).
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-a.Events():
			state, ok := ev.(device.ChannelStateEvent)
			if !ok || state.ChannelID != device.ChannelVolume {
				continue
			}
			if got := state.Value.(float64); got != 50 {
				t.Errorf("volume = %.2f, want 50", got)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for polled volume state")
		}
	}
}
