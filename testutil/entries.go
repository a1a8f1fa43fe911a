package testutil

import (
	"fmt"
	"time"

	"github.com/c360/logstream/types"
)

// baseTime anchors generated entry timestamps
var baseTime = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

// Entries builds sequential stdout INFO entries for an execution, one per
// message, with stable ids and timestamps one second apart.
func Entries(executionID string, messages ...string) []types.LogEntry {
	out := make([]types.LogEntry, len(messages))
	for i, msg := range messages {
		out[i] = types.LogEntry{
			ID:          fmt.Sprintf("%s-line-%d", executionID, i+1),
			Timestamp:   baseTime.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
			Level:       types.LevelInfo,
			LogType:     types.LogTypeStdout,
			ExecutionID: executionID,
			Message:     msg,
		}
	}
	return out
}

// StderrEntry builds one stderr ERROR entry
func StderrEntry(executionID, id, message string) types.LogEntry {
	return types.LogEntry{
		ID:          id,
		Timestamp:   baseTime.Format(time.RFC3339),
		Level:       types.LevelError,
		LogType:     types.LogTypeStderr,
		ExecutionID: executionID,
		Message:     message,
	}
}
