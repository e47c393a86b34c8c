package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogScopes(t *testing.T) {
	tests := []struct {
		name   string
		scopes LogScopes
	}{
		{name: "one is the smallest flag", scopes: 1},
		{name: "three is a valid flag", scopes: 1 << 2},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			f := LogScopes(0)
			require.False(t, f.IsEnabled(tc.scopes))

			f = f | tc.scopes
			require.True(t, f.IsEnabled(tc.scopes))

			f = f ^ tc.scopes
			require.False(t, f.IsEnabled(tc.scopes))
		})
	}
}

func TestLogScopes_String(t *testing.T) {
	tests := []struct {
		name     string
		scopes   LogScopes
		expected string
	}{
		{name: "none", scopes: 0, expected: ""},
		{name: "load", scopes: LogScopeLoad, expected: "load"},
		{name: "verify", scopes: LogScopeVerify, expected: "verify"},
		{name: "load|verify", scopes: LogScopeLoad | LogScopeVerify, expected: "load|verify"},
		{name: "all", scopes: LogScopeAll, expected: "all"},
		{name: "undefined", scopes: 1 << 5, expected: fmt.Sprintf("<unknown=%d>", 1<<5)},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.scopes.String())
		})
	}
}

func TestLogger_levelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo, LogScopeAll)

	l.VerifyStart(3) // debug, filtered out
	require.Empty(t, buf.String())

	l.VerifyResult(true, "")
	require.Contains(t, buf.String(), "verification succeeded")
}

func TestLogger_scopeFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug, LogScopeLoad)

	l.TierChange(0, "None", "Tier0") // engine scope, filtered out
	require.Empty(t, buf.String())

	l.ModuleLoaded(1, 2)
	require.Contains(t, buf.String(), "module loaded: entry method 1, 2 functions")
}

func TestLogger_nilIsNoOp(t *testing.T) {
	var l *Logger
	require.NotPanics(t, func() {
		l.ModuleLoaded(0, 0)
		l.VerifyResult(false, "boom")
		l.TierChange(0, "None", "Tier0")
		l.Bailout(0, "Tier0", true)
	})
}
