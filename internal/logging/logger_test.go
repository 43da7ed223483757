package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerWritesAllLevelsWhenKeepingLogs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, true)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	l.Info("calling %s", "orders")
	l.Success("status %d", 200)
	l.Warning("status %d", 503)
	l.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[2024-01-02 03:04:05.000] INFO    calling orders", lines[0])
	assert.Contains(t, lines[1], "SUCCESS status 200")
	assert.Contains(t, lines[2], "WARNING status 503")
	assert.Contains(t, lines[3], "ERROR   boom")
}

func TestConsoleLoggerDropsInfoWhenNotKeepingLogs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, false)

	l.Info("hidden")
	l.Success("hidden too")
	l.Warning("visible")
	l.Error("also visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "also visible")
	assert.False(t, l.KeepLogs())
}

func TestCapturingLogger(t *testing.T) {
	var l CapturingLogger
	l.Info("one")
	l.Warning("two %d", 2)
	l.Error("three")

	out := l.Output()
	require.Len(t, out, 3)
	assert.Equal(t, []string{"two 2"}, out.AtLevel(LevelWarning))
	assert.True(t, out.Contains("thr"))
	assert.False(t, out.Contains("four"))

	var buf bytes.Buffer
	out.Dump(&buf, "  ")
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "WARNING two 2")
}

func TestNullLogger(t *testing.T) {
	l := NullLogger()
	l.Info("x")
	l.Success("x")
	l.Warning("x")
	l.Error("x")
}

func TestGate(t *testing.T) {
	var inner CapturingLogger
	gated := Gate(&inner, false)
	gated.Info("dropped")
	gated.Success("dropped")
	gated.Warning("kept")
	gated.Error("kept too")

	out := inner.Output()
	require.Len(t, out, 2)
	assert.False(t, out.Contains("dropped"))

	assert.Same(t, &inner, Gate(&inner, true))
	assert.NotNil(t, Gate(nil, true))
}
