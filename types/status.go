// Package types contains shared domain types used across the logstream client
package types

// ExecutionStatus is the coarse lifecycle state of a remote execution
type ExecutionStatus string

// Execution status constants. Pending and running are transitional;
// the remaining four are terminal.
const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionSuccess   ExecutionStatus = "success"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionTimeout   ExecutionStatus = "timeout"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status ends the execution lifecycle.
// After a terminal status no further log lines or status updates are
// expected on the push channel.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionSuccess, ExecutionFailed, ExecutionTimeout, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// StatusUpdate is a coarse-grained execution lifecycle signal, distinct
// from individual log lines. Progress is nil when the server did not
// report one.
type StatusUpdate struct {
	Status   ExecutionStatus `json:"status"`
	Message  string          `json:"message,omitempty"`
	Progress *float64        `json:"progress,omitempty"`
}
