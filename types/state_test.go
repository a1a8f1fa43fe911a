package types_test

import (
	"testing"

	"github.com/c360/logstream/types"
)

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    types.ConnectionState
		expected string
	}{
		{types.StateDisconnected, "disconnected"},
		{types.StateConnecting, "connecting"},
		{types.StateConnected, "connected"},
		{types.StateReconnecting, "reconnecting"},
		{types.StateFailed, "failed"},
		{types.StateError, "error"},
		{types.ConnectionState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestConnectionState_IsTerminal(t *testing.T) {
	if !types.StateFailed.IsTerminal() {
		t.Error("failed should be terminal")
	}

	nonTerminal := []types.ConnectionState{
		types.StateDisconnected,
		types.StateConnecting,
		types.StateConnected,
		types.StateReconnecting,
		types.StateError,
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
