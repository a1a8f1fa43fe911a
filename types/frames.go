// Package types contains shared domain types used across the logstream client
package types

import (
	"encoding/json"
	"fmt"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/pkg/timestamp"
)

// Frame type tags spoken on the push channel
const (
	FrameLogLine         = "log_line"
	FramePing            = "ping"
	FramePong            = "pong"
	FrameExecutionStatus = "execution_status"
	FrameError           = "error"
)

// Frame is the tagged envelope for every message on the push channel.
// Data carries the payload of log_line and execution_status frames,
// Message is set on error frames, Timestamp on outbound pong frames.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ParseFrame decodes a raw push-channel message into its tagged envelope.
// The frame type must be present; payload decoding is left to the caller
// so an unknown tag can be skipped without touching its data.
func ParseFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, errors.WrapInvalid(err, "Frame", "ParseFrame", "unmarshal frame")
	}

	if frame.Type == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("missing frame type"),
			"Frame",
			"ParseFrame",
			"validate frame",
		)
	}

	return &frame, nil
}

// NewPongFrame builds the reply to a ping frame, stamped with the current
// UTC time in ISO 8601.
func NewPongFrame() Frame {
	return Frame{
		Type:      FramePong,
		Timestamp: timestamp.NowISO(),
	}
}

// LogLinePayload is the data section of a log_line frame. Servers send the
// text body as either content or message; ToLogEntry prefers content.
type LogLinePayload struct {
	ID          string         `json:"id,omitempty"`
	Timestamp   string         `json:"timestamp"`
	Level       string         `json:"level,omitempty"`
	LogType     string         `json:"log_type,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	TaskID      string         `json:"task_id,omitempty"`
	Content     string         `json:"content,omitempty"`
	Message     string         `json:"message,omitempty"`
	Source      string         `json:"source,omitempty"`
	FilePath    string         `json:"file_path,omitempty"`
	LineNumber  int            `json:"line_number,omitempty"`
	ExtraData   map[string]any `json:"extra_data,omitempty"`
}

// ToLogEntry maps the payload into a LogEntry, applying wire defaults:
// level INFO and log type stdout when absent, execution id falling back
// to the id of the stream the frame arrived on, and a client-generated
// id when the server did not send one.
func (p LogLinePayload) ToLogEntry(executionID string) LogEntry {
	entry := LogEntry{
		ID:          p.ID,
		Timestamp:   p.Timestamp,
		Level:       LogLevel(p.Level),
		LogType:     LogType(p.LogType),
		ExecutionID: p.ExecutionID,
		TaskID:      p.TaskID,
		Message:     p.Content,
		Source:      p.Source,
		FilePath:    p.FilePath,
		LineNumber:  p.LineNumber,
		ExtraData:   p.ExtraData,
	}

	if entry.Message == "" {
		entry.Message = p.Message
	}
	if entry.Level == "" {
		entry.Level = LevelInfo
	}
	if entry.LogType == "" {
		entry.LogType = LogTypeStdout
	}
	if entry.ExecutionID == "" {
		entry.ExecutionID = executionID
	}
	entry.EnsureID()

	return entry
}

// ExecutionStatusPayload is the data section of an execution_status frame
type ExecutionStatusPayload struct {
	Status   string   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// ToStatusUpdate maps the payload into a StatusUpdate
func (p ExecutionStatusPayload) ToStatusUpdate() StatusUpdate {
	return StatusUpdate{
		Status:   ExecutionStatus(p.Status),
		Message:  p.Message,
		Progress: p.Progress,
	}
}
