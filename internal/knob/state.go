package knob

// DeviceState is the readiness of the knob.
type DeviceState int

const (
	// StateBoot means no network yet.
	StateBoot DeviceState = iota
	// StateConnecting means the network is being brought up.
	StateConnecting
	// StateConnected means the network is up but no zone is resolved.
	StateConnected
	// StateOperational means a zone is resolved and inputs are live.
	StateOperational
	// StateReconnecting means the network dropped after reaching Operational.
	StateReconnecting
)

func (s DeviceState) String() string {
	switch s {
	case StateBoot:
		return "BOOT"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateOperational:
		return "OPERATIONAL"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}
