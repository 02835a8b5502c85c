package device

// Adapter is the host-facing contract of a protocol adapter. All methods are
// asynchronous: requests are queued onto the adapter's single worker and
// outcomes arrive as events on Events(). The host must not call into an
// adapter from more than one execution context concurrently.
type Adapter interface {
	// Start brings the adapter up: presence tracking begins, the device
	// snapshot is emitted and polling is scheduled.
	Start() error

	// Stop tears the adapter down. In-flight transactions observe the stop
	// signal at their next bounded wait.
	Stop()

	// RequestFullSync re-emits the snapshot and refreshes channel state.
	// A no-op when the adapter is already synced.
	RequestFullSync()

	// ConfigUpdated applies a new configuration snapshot.
	ConfigUpdated(cfg AdapterConfig)

	// WriteChannel requests a channel value change. The outcome is reported
	// as a CommandResultEvent carrying cmdID.
	WriteChannel(deviceID, channelID string, value any, cmdID string)

	// InvokeAction runs a named adapter action. The outcome is reported as
	// an ActionResultEvent carrying cmdID.
	InvokeAction(actionID string, params map[string]any, cmdID string)

	// Events returns the outbound event stream drained by the host.
	Events() <-chan Event

	// IsConnected reports current presence state.
	IsConnected() bool
}
