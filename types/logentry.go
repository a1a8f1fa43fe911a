// Package types contains shared domain types used across the logstream client
package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/c360/logstream/pkg/timestamp"
)

// LogLevel classifies the severity of a log entry
type LogLevel string

// Log level constants
const (
	LevelDebug    LogLevel = "DEBUG"
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// IsValid reports whether the level is a known severity
func (l LogLevel) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return true
	default:
		return false
	}
}

// LogType identifies the channel a log entry was captured from
type LogType string

// Log type constants
const (
	LogTypeStdout      LogType = "stdout"
	LogTypeStderr      LogType = "stderr"
	LogTypeSystem      LogType = "system"
	LogTypeApplication LogType = "application"
)

// IsValid reports whether the log type is a known channel
func (lt LogType) IsValid() bool {
	switch lt {
	case LogTypeStdout, LogTypeStderr, LogTypeSystem, LogTypeApplication:
		return true
	default:
		return false
	}
}

// LogEntry is a single line of execution output with its metadata.
// Timestamp is kept in the shape the server sent it; use the timestamp
// package to normalize for comparison or display.
type LogEntry struct {
	ID          string         `json:"id"`
	Timestamp   string         `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	LogType     LogType        `json:"log_type"`
	ExecutionID string         `json:"execution_id"`
	TaskID      string         `json:"task_id,omitempty"`
	Message     string         `json:"message"`
	Source      string         `json:"source,omitempty"`
	FilePath    string         `json:"file_path,omitempty"`
	LineNumber  int            `json:"line_number,omitempty"`
	ExtraData   map[string]any `json:"extra_data,omitempty"`
}

// EnsureID assigns a client-generated identifier when the server did not
// provide one: entry timestamp in Unix milliseconds plus a random suffix.
// The identifier is opaque and uniqueness is best effort.
func (e *LogEntry) EnsureID() {
	if e.ID != "" {
		return
	}
	ms := timestamp.Parse(e.Timestamp)
	if ms == 0 {
		ms = timestamp.Now()
	}
	e.ID = fmt.Sprintf("%d-%s", ms, randomSuffix())
}

// randomSuffix returns 8 hex characters (4 random bytes)
func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based suffix if random generation fails
		return fmt.Sprintf("%08d", timestamp.Now()%100000000)
	}
	return hex.EncodeToString(b)
}
