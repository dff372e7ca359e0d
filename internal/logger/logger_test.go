package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, detailed bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger, prevDetailed := globalLogger, detailedLogging
	globalLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	detailedLogging = detailed
	t.Cleanup(func() {
		globalLogger, detailedLogging = prevLogger, prevDetailed
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(l) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(l, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel(" WARN "))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestDebugNeedsDetailedLogging(t *testing.T) {
	buf := capture(t, false)
	Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	buf = capture(t, true)
	Debug(context.Background(), "shown", "k", 1)
	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "shown", got[0]["msg"])
	assert.Contains(t, got[0], "source")
}

func TestEventHelpers(t *testing.T) {
	buf := capture(t, false)
	ctx := context.Background()

	Tier(ctx, "ACME", "gold", 72, 81, "gem_tier", "gold")
	Macro(ctx, "recession", "tight", "fearful")
	Scan(ctx, "s-1", "US", "completed", "processed", 3)
	ErrorWithErr(ctx, "boom", errors.New("bad"))

	got := lines(t, buf)
	require.Len(t, got, 4)

	assert.Equal(t, "TIER", got[0]["type"])
	assert.Equal(t, "ACME", got[0]["symbol"])
	assert.EqualValues(t, 72, got[0]["confidence"])

	assert.Equal(t, "MACRO", got[1]["type"])
	assert.Equal(t, "WARN", got[1]["level"])

	assert.Equal(t, "Scan session completed", got[2]["msg"])
	assert.Equal(t, "s-1", got[2]["session_id"])

	assert.Equal(t, "bad", got[3]["error"])
}

func TestOperationTimer(t *testing.T) {
	buf := capture(t, true)
	op := StartOperation(context.Background(), "scan", "market", "US")
	require.NotNil(t, op.GetContext())
	op.EndWithError(errors.New("timeout"))

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "Operation started", got[0]["msg"])
	assert.Equal(t, "Operation failed", got[1]["msg"])
	assert.Equal(t, "US", got[1]["market"])
	assert.Contains(t, got[1], "duration_ms")
}

func TestToAttributesSkipsUnsupported(t *testing.T) {
	attrs := toAttributes([]any{"a", "x", "b", 2, 3, "c", "d", []int{1}, "e"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "a", string(attrs[0].Key))
	assert.Equal(t, "b", string(attrs[1].Key))
}

func TestLogFileIsClosed(t *testing.T) {
	prevLogger, prevDefault := globalLogger, slog.Default()
	t.Cleanup(func() {
		_ = Shutdown()
		globalLogger = prevLogger
		slog.SetDefault(prevDefault)
	})

	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "json", File: first}))
	firstFile, ok := logFile.(*os.File)
	require.True(t, ok)
	Info(context.Background(), "to first")

	// re-initializing closes the previous file
	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "json", File: second}))
	_, err := firstFile.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
	secondFile, ok := logFile.(*os.File)
	require.True(t, ok)
	Info(context.Background(), "to second")

	require.NoError(t, Shutdown())
	assert.Nil(t, logFile)
	_, err = secondFile.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
	require.NoError(t, Shutdown())

	b, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to first")
	b, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to second")
	assert.NotContains(t, string(b), "to first")
}
