package types_test

import (
	"strings"
	"testing"

	"github.com/c360/logstream/types"
)

func TestLogLevel_IsValid(t *testing.T) {
	valid := []types.LogLevel{
		types.LevelDebug,
		types.LevelInfo,
		types.LevelWarning,
		types.LevelError,
		types.LevelCritical,
	}
	for _, l := range valid {
		if !l.IsValid() {
			t.Errorf("%s should be valid", l)
		}
	}

	for _, l := range []types.LogLevel{"", "info", "TRACE"} {
		if l.IsValid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}

func TestLogType_IsValid(t *testing.T) {
	valid := []types.LogType{
		types.LogTypeStdout,
		types.LogTypeStderr,
		types.LogTypeSystem,
		types.LogTypeApplication,
	}
	for _, lt := range valid {
		if !lt.IsValid() {
			t.Errorf("%s should be valid", lt)
		}
	}

	for _, lt := range []types.LogType{"", "STDOUT", "file"} {
		if lt.IsValid() {
			t.Errorf("%q should be invalid", lt)
		}
	}
}

func TestLogEntry_EnsureID_PreservesExisting(t *testing.T) {
	entry := types.LogEntry{ID: "server-42", Timestamp: "2024-01-01T00:00:00Z"}
	entry.EnsureID()
	if entry.ID != "server-42" {
		t.Errorf("existing id should be preserved, got %q", entry.ID)
	}
}

func TestLogEntry_EnsureID_Generates(t *testing.T) {
	entry := types.LogEntry{Timestamp: "2024-01-01T00:00:00Z"}
	entry.EnsureID()

	if entry.ID == "" {
		t.Fatal("expected generated id")
	}
	parts := strings.SplitN(entry.ID, "-", 2)
	if len(parts) != 2 {
		t.Fatalf("expected ms-suffix shape, got %q", entry.ID)
	}
	if parts[0] != "1704067200000" {
		t.Errorf("expected entry timestamp as prefix, got %q", parts[0])
	}
	if len(parts[1]) != 8 {
		t.Errorf("expected 8 character suffix, got %q", parts[1])
	}
}

func TestLogEntry_EnsureID_UnparseableTimestamp(t *testing.T) {
	entry := types.LogEntry{Timestamp: "soon"}
	entry.EnsureID()

	if entry.ID == "" {
		t.Fatal("expected generated id even without parseable timestamp")
	}
	// Falls back to current time; prefix must be a plausible ms value
	parts := strings.SplitN(entry.ID, "-", 2)
	if len(parts) != 2 || len(parts[0]) < 13 {
		t.Errorf("expected current-time ms prefix, got %q", entry.ID)
	}
}

func TestLogEntry_EnsureID_BestEffortUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		entry := types.LogEntry{Timestamp: "2024-01-01T00:00:00Z"}
		entry.EnsureID()
		if seen[entry.ID] {
			t.Fatalf("duplicate id generated: %s", entry.ID)
		}
		seen[entry.ID] = true
	}
}
