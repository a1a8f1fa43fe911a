package types_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/c360/logstream/errors"
	"github.com/c360/logstream/types"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		expectError bool
		expectType  string
	}{
		{
			name:       "log line frame",
			raw:        `{"type":"log_line","data":{"timestamp":"2024-01-01T00:00:00Z","content":"hello"}}`,
			expectType: "log_line",
		},
		{
			name:       "ping frame",
			raw:        `{"type":"ping"}`,
			expectType: "ping",
		},
		{
			name:       "execution status frame",
			raw:        `{"type":"execution_status","data":{"status":"running"}}`,
			expectType: "execution_status",
		},
		{
			name:       "error frame",
			raw:        `{"type":"error","message":"boom"}`,
			expectType: "error",
		},
		{
			name:       "unknown tag still parses",
			raw:        `{"type":"telemetry","data":{}}`,
			expectType: "telemetry",
		},
		{
			name:        "malformed json",
			raw:         `{"type":"log_line"`,
			expectError: true,
		},
		{
			name:        "missing type tag",
			raw:         `{"data":{"content":"hello"}}`,
			expectError: true,
		},
		{
			name:        "empty input",
			raw:         ``,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := types.ParseFrame([]byte(tt.raw))
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !pkgerrors.IsInvalid(err) {
					t.Errorf("expected invalid classification, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if frame.Type != tt.expectType {
				t.Errorf("expected type %q, got %q", tt.expectType, frame.Type)
			}
		})
	}
}

func TestNewPongFrame(t *testing.T) {
	pong := types.NewPongFrame()

	if pong.Type != types.FramePong {
		t.Errorf("expected type %q, got %q", types.FramePong, pong.Type)
	}

	if _, err := time.Parse(time.RFC3339, pong.Timestamp); err != nil {
		t.Errorf("pong timestamp %q is not RFC3339: %v", pong.Timestamp, err)
	}

	// Wire shape carries only type and timestamp
	raw, err := json.Marshal(pong)
	if err != nil {
		t.Fatalf("marshal pong: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"type":"pong"`) || !strings.Contains(s, `"timestamp":"`) {
		t.Errorf("unexpected pong wire shape: %s", s)
	}
	if strings.Contains(s, `"data"`) || strings.Contains(s, `"message"`) {
		t.Errorf("pong frame should omit unused fields: %s", s)
	}
}

func TestLogLinePayload_ToLogEntry_Defaults(t *testing.T) {
	payload := types.LogLinePayload{
		Timestamp: "2024-01-01T00:00:00Z",
		Content:   "hello",
	}

	entry := payload.ToLogEntry("exec-1")

	if entry.Level != types.LevelInfo {
		t.Errorf("expected default level INFO, got %s", entry.Level)
	}
	if entry.LogType != types.LogTypeStdout {
		t.Errorf("expected default log type stdout, got %s", entry.LogType)
	}
	if entry.Message != "hello" {
		t.Errorf("expected message from content, got %q", entry.Message)
	}
	if entry.ExecutionID != "exec-1" {
		t.Errorf("expected execution id fallback, got %q", entry.ExecutionID)
	}
	if entry.ID == "" {
		t.Error("expected client-generated id")
	}
	if !strings.HasPrefix(entry.ID, "1704067200000-") {
		t.Errorf("expected id prefixed with entry timestamp ms, got %q", entry.ID)
	}
}

func TestLogLinePayload_ToLogEntry_BodySelection(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		message  string
		expected string
	}{
		{"content only", "from content", "", "from content"},
		{"message only", "", "from message", "from message"},
		{"content wins over message", "from content", "from message", "from content"},
		{"both empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := types.LogLinePayload{
				Timestamp: "2024-01-01T00:00:00Z",
				Content:   tt.content,
				Message:   tt.message,
			}
			entry := payload.ToLogEntry("exec-1")
			if entry.Message != tt.expected {
				t.Errorf("expected body %q, got %q", tt.expected, entry.Message)
			}
		})
	}
}

func TestLogLinePayload_ToLogEntry_ExplicitFields(t *testing.T) {
	payload := types.LogLinePayload{
		ID:          "server-id-1",
		Timestamp:   "2024-01-01T00:00:00Z",
		Level:       "ERROR",
		LogType:     "stderr",
		ExecutionID: "exec-from-payload",
		TaskID:      "task-9",
		Content:     "oops",
		Source:      "worker-2",
		FilePath:    "/var/log/task.log",
		LineNumber:  42,
		ExtraData:   map[string]any{"attempt": float64(3)},
	}

	entry := payload.ToLogEntry("exec-other")

	if entry.ID != "server-id-1" {
		t.Errorf("server id should be preserved, got %q", entry.ID)
	}
	if entry.Level != types.LevelError {
		t.Errorf("expected ERROR, got %s", entry.Level)
	}
	if entry.LogType != types.LogTypeStderr {
		t.Errorf("expected stderr, got %s", entry.LogType)
	}
	if entry.ExecutionID != "exec-from-payload" {
		t.Errorf("payload execution id should win, got %q", entry.ExecutionID)
	}
	if entry.TaskID != "task-9" || entry.Source != "worker-2" {
		t.Errorf("metadata not carried: %+v", entry)
	}
	if entry.FilePath != "/var/log/task.log" || entry.LineNumber != 42 {
		t.Errorf("file metadata not carried: %+v", entry)
	}
	if entry.ExtraData["attempt"] != float64(3) {
		t.Errorf("extra data not carried: %+v", entry.ExtraData)
	}
}

func TestExecutionStatusPayload_ToStatusUpdate(t *testing.T) {
	progress := 0.75
	payload := types.ExecutionStatusPayload{
		Status:   "running",
		Message:  "still going",
		Progress: &progress,
	}

	update := payload.ToStatusUpdate()

	if update.Status != types.ExecutionRunning {
		t.Errorf("expected running, got %s", update.Status)
	}
	if update.Message != "still going" {
		t.Errorf("expected message carried, got %q", update.Message)
	}
	if update.Progress == nil || *update.Progress != 0.75 {
		t.Errorf("expected progress 0.75, got %v", update.Progress)
	}

	// Absent progress stays nil
	bare := types.ExecutionStatusPayload{Status: "success"}
	if bare.ToStatusUpdate().Progress != nil {
		t.Error("expected nil progress when absent")
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	terminal := []types.ExecutionStatus{
		types.ExecutionSuccess,
		types.ExecutionFailed,
		types.ExecutionTimeout,
		types.ExecutionCancelled,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	for _, s := range []types.ExecutionStatus{types.ExecutionPending, types.ExecutionRunning, "weird"} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
