package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avcontrol/onkyo-bridge/pkg/db"
	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

const (
	// writeResultTimeout bounds the wait for a CommandResultEvent. The
	// adapter's own transport budget is well under this.
	writeResultTimeout = 10 * time.Second

	// actionResultTimeout bounds the wait for an ActionResultEvent; probes
	// include a reply wait on the wire.
	actionResultTimeout = 15 * time.Second

	subscriberBuffer = 32
)

// Envelope is the wire shape of a forwarded adapter event, shared by the
// websocket stream and the broker publisher.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Bridge sits between the protocol adapter and the outer surfaces. It drains
// the adapter's event stream, keeps the last known device state, correlates
// write/action results back to callers and persists configuration patches the
// adapter discovers at runtime.
type Bridge struct {
	adapter    device.Adapter
	store      *db.DB
	receiverID int64
	pub        Publisher

	mu        sync.RWMutex
	dev       device.Device
	channels  []device.Channel
	values    map[string]any
	connected bool
	synced    bool

	pendingMu   sync.Mutex
	pendingCmds map[string]chan device.CommandResultEvent
	pendingActs map[string]chan device.ActionResultEvent

	subMu sync.Mutex
	subs  map[chan Envelope]struct{}

	done chan struct{}
}

// New creates a Bridge for the given adapter and receiver row. pub may be
// nil when no broker is configured.
func New(adapter device.Adapter, store *db.DB, receiverID int64, pub Publisher) *Bridge {
	return &Bridge{
		adapter:     adapter,
		store:       store,
		receiverID:  receiverID,
		pub:         pub,
		values:      make(map[string]any),
		pendingCmds: make(map[string]chan device.CommandResultEvent),
		pendingActs: make(map[string]chan device.ActionResultEvent),
		subs:        make(map[chan Envelope]struct{}),
		done:        make(chan struct{}),
	}
}

// Run drains adapter events until ctx is cancelled or the adapter closes its
// event channel. Call in its own goroutine.
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.done)
	events := b.adapter.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.handleEvent(ctx, ev)
		}
	}
}

// Done is closed when Run returns.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

func (b *Bridge) handleEvent(ctx context.Context, ev device.Event) {
	switch e := ev.(type) {
	case device.SnapshotEvent:
		b.mu.Lock()
		b.dev = e.Device
		b.channels = e.Channels
		b.mu.Unlock()

	case device.ChannelStateEvent:
		b.mu.Lock()
		b.values[e.ChannelID] = e.Value
		b.mu.Unlock()

	case device.ConnectivityEvent:
		b.mu.Lock()
		b.connected = e.Connected
		b.values[device.ChannelConnectivity] = statusString(e.Connected)
		b.mu.Unlock()

	case device.FullSyncEvent:
		b.mu.Lock()
		b.synced = true
		b.mu.Unlock()

	case device.CommandResultEvent:
		b.deliverCommandResult(e)

	case device.ActionResultEvent:
		b.deliverActionResult(e)

	case device.ChannelConfigEvent:
		b.mu.Lock()
		for i := range b.channels {
			if b.channels[i].ID == e.Channel.ID {
				b.channels[i] = e.Channel
				break
			}
		}
		b.mu.Unlock()

	case device.MetaPatchEvent:
		b.applyMetaPatch(ctx, e.Patch)
	}

	b.broadcast(ev)
	b.publish(ev)
}

func statusString(connected bool) string {
	if connected {
		return device.ConnectivityConnected.String()
	}
	return device.ConnectivityDisconnected.String()
}

// applyMetaPatch persists adapter-discovered configuration (e.g. a newly
// observed input code) and pushes the rebuilt config back to the adapter.
func (b *Bridge) applyMetaPatch(ctx context.Context, patch map[string]any) {
	if err := b.store.ApplyMetaPatch(ctx, b.receiverID, patch); err != nil {
		log.Error().Err(err).Msg("failed to persist meta patch")
		return
	}

	receiver, err := b.store.GetReceiver(ctx, b.receiverID)
	if err != nil {
		log.Error().Err(err).Msg("failed to reload receiver after meta patch")
		return
	}
	cfg, err := b.store.AdapterConfigFor(ctx, receiver)
	if err != nil {
		log.Error().Err(err).Msg("failed to rebuild adapter config after meta patch")
		return
	}
	b.adapter.ConfigUpdated(cfg)
	log.Debug().Int("keys", len(patch)).Msg("meta patch applied")
}

func (b *Bridge) deliverCommandResult(ev device.CommandResultEvent) {
	b.pendingMu.Lock()
	ch, ok := b.pendingCmds[ev.CmdID]
	if ok {
		delete(b.pendingCmds, ev.CmdID)
	}
	b.pendingMu.Unlock()
	if ok {
		ch <- ev
	}
}

func (b *Bridge) deliverActionResult(ev device.ActionResultEvent) {
	b.pendingMu.Lock()
	ch, ok := b.pendingActs[ev.CmdID]
	if ok {
		delete(b.pendingActs, ev.CmdID)
	}
	b.pendingMu.Unlock()
	if ok {
		ch <- ev
	}
}

// WriteChannel requests a channel value change and waits for the correlated
// result. The returned value is the adapter's echo of the applied value.
func (b *Bridge) WriteChannel(ctx context.Context, channelID string, value any) (any, error) {
	cmdID := uuid.NewString()
	ch := make(chan device.CommandResultEvent, 1)

	b.pendingMu.Lock()
	b.pendingCmds[cmdID] = ch
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pendingCmds, cmdID)
		b.pendingMu.Unlock()
	}()

	b.adapter.WriteChannel(b.DeviceID(), channelID, value, cmdID)

	select {
	case ev := <-ch:
		if err := device.StatusError(ev.Status); err != nil {
			if ev.Error != "" {
				return nil, fmt.Errorf("%w: %s", err, ev.Error)
			}
			return nil, err
		}
		return ev.FinalValue, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(writeResultTimeout):
		return nil, device.ErrTimeout
	}
}

// ApplyState writes a partial state document channel by channel, in a fixed
// order so a combined power+input write turns the receiver on first. The
// first failure stops the sequence.
func (b *Bridge) ApplyState(ctx context.Context, patch map[string]any) (map[string]any, error) {
	order := []string{device.ChannelPower, device.ChannelInput, device.ChannelVolume, device.ChannelMute}
	applied := make(map[string]any)
	for _, channelID := range order {
		value, ok := patch[channelID]
		if !ok {
			continue
		}
		final, err := b.WriteChannel(ctx, channelID, value)
		if err != nil {
			return applied, fmt.Errorf("channel %s: %w", channelID, err)
		}
		applied[channelID] = final
	}
	return applied, nil
}

// InvokeAction runs a named adapter action and waits for the result string.
func (b *Bridge) InvokeAction(ctx context.Context, actionID string, params map[string]any) (string, error) {
	cmdID := uuid.NewString()
	ch := make(chan device.ActionResultEvent, 1)

	b.pendingMu.Lock()
	b.pendingActs[cmdID] = ch
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pendingActs, cmdID)
		b.pendingMu.Unlock()
	}()

	b.adapter.InvokeAction(actionID, params, cmdID)

	select {
	case ev := <-ch:
		if err := device.StatusError(ev.Status); err != nil {
			if ev.Error != "" {
				return "", fmt.Errorf("%w: %s", err, ev.Error)
			}
			return "", err
		}
		return ev.Result, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(actionResultTimeout):
		return "", device.ErrTimeout
	}
}

// DeviceID returns the synced device identifier, or "" before the snapshot.
func (b *Bridge) DeviceID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dev.ID
}

// Device returns the device description from the last snapshot.
func (b *Bridge) Device() device.Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dev
}

// Channels returns a copy of the current channel definitions.
func (b *Bridge) Channels() []device.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	channels := make([]device.Channel, len(b.channels))
	copy(channels, b.channels)
	return channels
}

// State returns a copy of the last known channel values.
func (b *Bridge) State() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	state := make(map[string]any, len(b.values))
	for k, v := range b.values {
		state[k] = v
	}
	return state
}

// IsConnected reports the receiver's last known presence state.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// IsSynced reports whether the initial snapshot cycle completed.
func (b *Bridge) IsSynced() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.synced
}

// Subscribe registers an event stream consumer. The returned cancel func
// must be called when the consumer goes away.
func (b *Bridge) Subscribe() (<-chan Envelope, func()) {
	ch := make(chan Envelope, subscriberBuffer)
	b.subMu.Lock()
	b.subs[ch] = struct{}{}
	b.subMu.Unlock()

	cancel := func() {
		b.subMu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.subMu.Unlock()
	}
	return ch, cancel
}

// broadcast fans an event out to subscribers. Slow consumers lose events
// rather than blocking the drain loop.
func (b *Bridge) broadcast(ev device.Event) {
	env := Envelope{Type: ev.EventType(), Data: ev, Timestamp: time.Now()}
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- env:
		default:
			log.Warn().Str("event", env.Type).Msg("subscriber buffer full, dropping event")
		}
	}
}

func (b *Bridge) publish(ev device.Event) {
	if b.pub == nil {
		return
	}
	if err := b.pub.PublishEvent(ev); err != nil {
		log.Warn().Err(err).Str("event", ev.EventType()).Msg("failed to publish event")
	}
}
