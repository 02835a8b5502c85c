package eiscp

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

const (
	heartbeatInterval = 2 * time.Second
	initialQueryDelay = 1500 * time.Millisecond
	presenceMargin    = time.Second

	queryReplyTimeout = 800 * time.Millisecond
	probeReplyTimeout = 1500 * time.Millisecond

	// ActionProbeInput queries the receiver for its current input and
	// persists the observed code into the configuration.
	ActionProbeInput = "probeCurrentInput"
)

// stateQueries is the full refresh cycle, each an independent best-effort
// transaction.
var stateQueries = []string{
	mnemonicPower + querySuffix,
	mnemonicMute + querySuffix,
	mnemonicVolume + querySuffix,
	mnemonicInput + querySuffix,
}

// Adapter bridges one Onkyo/Pioneer receiver into the generic device model.
// All state below the channels is owned by the single worker goroutine;
// external calls enqueue closures onto ops.
type Adapter struct {
	events chan device.Event
	ops    chan func()

	stop chan struct{}
	done chan struct{}

	stopping atomic.Bool
	running  atomic.Bool
	connFlag atomic.Bool

	// worker-owned state
	cfg        Config
	inputs     *InputRegistry
	translator *Translator
	transport  Transport

	deviceID        string
	connected       bool
	synced          bool
	lastSeen        time.Time
	presenceTimeout time.Duration

	lastAttempt   time.Time
	lastFailure   string
	lastFailureAt time.Time

	pollTimer *time.Timer
}

// New creates an adapter from the host-provided configuration. Start must be
// called before the adapter does anything.
func New(cfg device.AdapterConfig) *Adapter {
	a := &Adapter{
		events: make(chan device.Event, 64),
		ops:    make(chan func(), 16),
	}
	a.applyConfig(ConfigFromAdapter(cfg))
	return a
}

// Start brings the adapter up: presence tracking begins, the device snapshot
// is emitted once and the poll/retry driver is armed.
func (a *Adapter) Start() error {
	if a.running.Swap(true) {
		return fmt.Errorf("adapter already started")
	}
	a.stopping.Store(false)
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	a.synced = false

	log.Info().
		Str("host", a.cfg.Host).
		Int("port", a.cfg.Port).
		Str("serial", a.cfg.SerialPath).
		Dur("poll_interval", a.cfg.PollInterval).
		Dur("retry_interval", a.cfg.RetryInterval).
		Int("volume_max_raw", a.cfg.VolumeMaxRaw).
		Msg("starting receiver adapter")

	if a.transport == nil {
		log.Warn().Msg("receiver host not configured, staying disconnected")
	}

	go a.run()
	return nil
}

// Stop tears the adapter down, forcing disconnected state. In-flight bounded
// waits observe the stop signal within one poll increment.
func (a *Adapter) Stop() {
	if !a.running.Load() || a.stopping.Swap(true) {
		return
	}
	log.Info().Str("device", a.deviceID).Msg("stopping receiver adapter")
	close(a.stop)
	<-a.done
	a.running.Store(false)

	// worker has exited; safe to touch its state
	a.synced = false
	if a.connected {
		a.setConnected(false)
		a.emitChannelState(device.ChannelConnectivity, device.ConnectivityDisconnected.String())
	}
	if a.transport != nil {
		a.transport.Close()
	}
}

// Events returns the outbound event stream.
func (a *Adapter) Events() <-chan device.Event {
	return a.events
}

// IsConnected reports current presence state.
func (a *Adapter) IsConnected() bool {
	return a.connFlag.Load()
}

// RequestFullSync re-emits the snapshot and refreshes state. A no-op when
// already synced.
func (a *Adapter) RequestFullSync() {
	a.enqueue(func() {
		if a.synced {
			return
		}
		a.emitSnapshot()
		a.refreshState()
	}, nil)
}

// ConfigUpdated applies a new configuration snapshot, rebuilds the input
// registry and refreshes state.
func (a *Adapter) ConfigUpdated(cfg device.AdapterConfig) {
	a.enqueue(func() {
		a.applyConfig(ConfigFromAdapter(cfg))
		if a.synced && a.deviceID != "" {
			a.emit(device.ChannelConfigEvent{DeviceID: a.deviceID, Channel: a.buildInputChannel()})
		} else {
			a.emitSnapshot()
		}
		a.refreshState()
	}, nil)
}

// WriteChannel translates and sends a channel write, reporting the outcome
// as a CommandResultEvent carrying cmdID.
func (a *Adapter) WriteChannel(deviceID, channelID string, value any, cmdID string) {
	busy := func() {
		a.emit(device.CommandResultEvent{
			CmdID:     cmdID,
			Status:    device.StatusTemporarilyOffline,
			Error:     "adapter busy",
			Timestamp: time.Now(),
		})
	}
	a.enqueue(func() { a.handleWrite(deviceID, channelID, value, cmdID) }, busy)
}

// InvokeAction runs a named adapter action, reporting the outcome as an
// ActionResultEvent carrying cmdID.
func (a *Adapter) InvokeAction(actionID string, params map[string]any, cmdID string) {
	busy := func() {
		a.emit(device.ActionResultEvent{
			CmdID:     cmdID,
			ActionID:  actionID,
			Status:    device.StatusTemporarilyOffline,
			Error:     "adapter busy",
			Timestamp: time.Now(),
		})
	}
	a.enqueue(func() { a.handleAction(actionID, params, cmdID) }, busy)
}

// enqueue hands an operation to the worker without blocking the caller.
func (a *Adapter) enqueue(op func(), onFull func()) {
	select {
	case a.ops <- op:
	default:
		log.Warn().Msg("adapter op queue full, rejecting request")
		if onFull != nil {
			onFull()
		}
	}
}

// run is the single worker: timer callbacks and queued operations execute
// here and nowhere else, so the state machine needs no locking.
func (a *Adapter) run() {
	defer close(a.done)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	initial := time.NewTimer(initialQueryDelay)
	defer initial.Stop()

	a.pollTimer = time.NewTimer(a.pollDelay())
	defer a.pollTimer.Stop()

	a.emitSnapshot()

	for {
		select {
		case <-a.stop:
			return
		case op := <-a.ops:
			op()
		case <-initial.C:
			a.refreshState()
		case <-heartbeat.C:
			a.checkPresence()
		case <-a.pollTimer.C:
			a.refreshState()
			a.pollTimer.Reset(a.pollDelay())
		}
	}
}

// pollDelay is the poll interval while connected, the retry interval while
// disconnected.
func (a *Adapter) pollDelay() time.Duration {
	if a.connected {
		return a.cfg.PollInterval
	}
	return a.cfg.RetryInterval
}

func (a *Adapter) applyConfig(cfg Config) {
	lastInput := ""
	if a.translator != nil {
		lastInput = a.translator.LastInputCode()
	}
	a.cfg = cfg
	a.presenceTimeout = cfg.PollInterval + presenceMargin
	a.inputs = BuildInputRegistry(cfg.ActiveInputCodes, cfg.InputLabels)
	a.translator = NewTranslator(cfg.VolumeMaxRaw, a.inputs)
	a.translator.SetLastInputCode(lastInput)

	if a.transport != nil {
		a.transport.Close()
	}
	switch {
	case cfg.SerialPath != "":
		a.transport = newSerialTransport(cfg.SerialPath, cfg.UseCRLF)
	case cfg.Host != "" && cfg.Port > 0:
		a.transport = newTCPTransport(cfg.Host, cfg.Port, cfg.UseCRLF)
	default:
		a.transport = nil
	}
}

// refreshState queries power, mute, volume and input in sequence. Each query
// is its own best-effort transaction; one failure does not abort the rest.
func (a *Adapter) refreshState() {
	if a.stopping.Load() || a.transport == nil {
		return
	}
	for _, query := range stateQueries {
		if a.stopping.Load() {
			return
		}
		a.execute(query, true, queryReplyTimeout)
	}
}

// execute runs one transaction. It refuses while stopping, while
// unconfigured, and while the retry back-off gate is closed. A failed
// attempt never flips presence state; only sustained silence does.
func (a *Adapter) execute(cmd string, expectReply bool, replyTimeout time.Duration) bool {
	if a.transport == nil || a.stopping.Load() {
		return false
	}
	if !a.connected && time.Since(a.lastAttempt) < a.cfg.RetryInterval {
		return false
	}
	a.lastAttempt = time.Now()

	err := a.transport.Execute(cmd, expectReply, replyTimeout, a.stop, a.markSeen, a.handlePayload)
	if err != nil {
		a.logConnectFailure(err)
		return false
	}
	return true
}

// handlePayload demultiplexes a decoded payload into channel updates.
// Unparseable lines are skipped; sibling lines still apply.
func (a *Adapter) handlePayload(payload []byte) {
	for _, line := range SplitPayload(payload) {
		update := a.translator.TranslateLine(line)
		if update == nil {
			continue
		}
		log.Debug().Str("line", line).Str("channel", update.Channel).Msg("receiver update")
		a.emitChannelState(update.Channel, update.Value)
		a.markSeen()
	}
}

// markSeen records evidence of liveness and raises connected state.
func (a *Adapter) markSeen() {
	a.lastSeen = time.Now()
	if !a.connected {
		a.setConnected(true)
	}
	a.emitChannelState(device.ChannelConnectivity, device.ConnectivityConnected.String())
}

// checkPresence is the heartbeat: it evaluates the timeout condition and
// never performs I/O.
func (a *Adapter) checkPresence() {
	if a.lastSeen.IsZero() {
		return
	}
	if time.Since(a.lastSeen) > a.presenceTimeout {
		if a.connected {
			a.setConnected(false)
			a.emitChannelState(device.ChannelConnectivity, device.ConnectivityDisconnected.String())
		}
	}
}

func (a *Adapter) setConnected(connected bool) {
	if a.connected == connected {
		return
	}
	a.connected = connected
	a.connFlag.Store(connected)
	if a.pollTimer != nil {
		a.pollTimer.Reset(a.pollDelay())
	}
	log.Info().Bool("connected", connected).Str("device", a.deviceID).Msg("receiver connectivity changed")
	a.emit(device.ConnectivityEvent{Connected: connected, Timestamp: time.Now()})
}

// logConnectFailure logs a transport failure, deduplicated by message and
// host within the retry window to avoid flooding during outages.
func (a *Adapter) logConnectFailure(err error) {
	key := fmt.Sprintf("%s|%s", err.Error(), a.cfg.Host)
	now := time.Now()
	if key == a.lastFailure && now.Sub(a.lastFailureAt) < a.cfg.RetryInterval {
		return
	}
	a.lastFailure = key
	a.lastFailureAt = now
	log.Warn().Err(err).Str("host", a.cfg.Host).Int("port", a.cfg.Port).Msg("receiver connect failed")
}

func (a *Adapter) handleWrite(deviceID, channelID string, value any, cmdID string) {
	result := device.CommandResultEvent{CmdID: cmdID, Timestamp: time.Now()}

	if deviceID != a.deviceID {
		result.Status = device.StatusNotSupported
		result.Error = "unknown device"
		a.emit(result)
		return
	}

	cmd, finalValue, err := a.translator.TranslateWrite(channelID, value)
	if err != nil {
		result.Status = translateErrStatus(err)
		result.Error = err.Error()
		a.emit(result)
		return
	}

	if a.execute(cmd, false, 0) {
		result.Status = device.StatusSuccess
		result.FinalValue = finalValue
	} else {
		result.Status = device.StatusTemporarilyOffline
		result.Error = "receiver unavailable"
	}
	a.emit(result)
}

func (a *Adapter) handleAction(actionID string, _ map[string]any, cmdID string) {
	result := device.ActionResultEvent{CmdID: cmdID, ActionID: actionID, Timestamp: time.Now()}

	if actionID != ActionProbeInput {
		result.Status = device.StatusNotSupported
		result.Error = "adapter action not supported"
		a.emit(result)
		return
	}

	before := a.translator.LastInputCode()
	var resolved string
	if !a.execute(mnemonicInput+querySuffix, true, probeReplyTimeout) {
		result.Status = device.StatusTemporarilyOffline
		result.Error = "receiver unavailable"
	} else if code := a.translator.LastInputCode(); code != "" {
		result.Status = device.StatusSuccess
		result.Result = code
		resolved = code
	} else if before != "" {
		result.Status = device.StatusSuccess
		result.Result = before
		resolved = before
	} else {
		result.Status = device.StatusFailure
		result.Error = "no input reported"
	}

	if resolved != "" {
		a.emitInputPatch(resolved)
	}
	a.emit(result)
}

// emitInputPatch asks the host to persist the observed input code: the
// active-code list grows by the code, and a generated label is added when
// no override exists yet.
func (a *Adapter) emitInputPatch(code string) {
	normalized := NormalizeCode(code)

	seen := map[string]bool{normalized: true}
	codes := []string{normalized}
	for _, active := range a.cfg.ActiveInputCodes {
		c := NormalizeCode(active)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}

	patch := map[string]any{"activeSliCodes": codes}
	labelKey := inputLabelPrefix + normalized
	if a.cfg.InputLabels[normalized] == "" {
		patch[labelKey] = GeneratedLabel(normalized)
	}
	a.emit(device.MetaPatchEvent{Patch: patch})
}

func translateErrStatus(err error) device.CmdStatus {
	switch {
	case errors.Is(err, device.ErrInvalidArgument):
		return device.StatusInvalidArgument
	case errors.Is(err, device.ErrNotSupported):
		return device.StatusNotSupported
	case errors.Is(err, device.ErrTemporarilyOffline):
		return device.StatusTemporarilyOffline
	}
	return device.StatusFailure
}

// emit delivers an event without blocking the worker; a full channel drops
// the event with a warning, matching the best-effort contract.
func (a *Adapter) emit(event device.Event) {
	select {
	case a.events <- event:
	default:
		log.Warn().Str("type", event.EventType()).Msg("event channel full, dropping event")
	}
}

func (a *Adapter) emitChannelState(channelID string, value any) {
	a.emit(device.ChannelStateEvent{
		DeviceID:  a.deviceID,
		ChannelID: channelID,
		Value:     value,
		Timestamp: time.Now(),
	})
}
