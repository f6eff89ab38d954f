package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.level.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)
	defer Init(LevelInfo, &bytes.Buffer{})

	Debug("Test", "debug message")
	Info("Test", "info message")
	Warn("Test", "warn message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "subsystem=Test")
}

func TestErrorIncludesErr(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)
	defer Init(LevelInfo, &bytes.Buffer{})

	Error("Test", assert.AnError, "operation failed")

	out := buf.String()
	assert.Contains(t, out, "operation failed")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestTruncateSessionID(t *testing.T) {
	assert.Equal(t, "short", TruncateSessionID("short"))
	assert.Equal(t, "12345678...", TruncateSessionID("1234567890abcdef"))
	assert.Equal(t, "", TruncateSessionID(""))
}
