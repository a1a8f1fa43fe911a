// Package types contains shared domain types used across the logstream client
package types

// ConnectionState represents the lifecycle state of a push-channel connection
type ConnectionState int

// Possible connection states. StateError is a transient signal observed
// between a transport failure and the close-driven transition that follows
// it; a handle never rests in StateError.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateError
)

// String returns the string representation of ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state ends the handle's lifecycle.
// A failed handle never reconnects; a new Connect call is required.
func (s ConnectionState) IsTerminal() bool {
	return s == StateFailed
}
