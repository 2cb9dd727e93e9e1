package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf, false)

	l.Debug("hidden")
	l.Info("shown", "recipient", "0xAAA")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "recipient=0xAAA")
}

func TestLoggerWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("debug", &buf, true).With("run_id", "r1")

	l.Error("boom")

	assert.Contains(t, buf.String(), `"run_id":"r1"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}
