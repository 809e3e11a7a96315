package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(WithOutput(&buf), WithLevel(LevelWarn))

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
}

func TestLogContextAppendsRunFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(WithOutput(&buf))

	ctx := ContextWithRun(context.Background(), RunContext{RunID: "run-1"})
	ctx = WithRelease(ctx, "demo", "42")
	log.InfoContext(ctx, "release processed", String("status", "Success"))

	line := buf.String()
	assert.Contains(t, line, "[INFO] [demo#42] release processed status=Success run_id=run-1")

	buf.Reset()
	log.Info("no release here")
	assert.NotContains(t, buf.String(), "#")
	assert.NotContains(t, buf.String(), "run_id")
}

func TestJSONOutputCarriesRun(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(WithOutput(&buf), WithJSON())

	ctx := WithRelease(ContextWithRun(context.Background(), RunContext{RunID: "run-7"}), "demo", "3")
	log.WarnContext(ctx, "upload failed")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "run-7", decoded["run_id"])
	assert.Equal(t, "demo", decoded["app"])
	assert.Equal(t, "3", decoded["release"])
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewStandardLogger(WithOutput(&buf), WithJSON())

	log.ErrorContext(context.Background(), "upload failed", Int("attempts", 3))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "ERROR", decoded["level"])
	assert.Equal(t, "upload failed", decoded["msg"])
	assert.Equal(t, float64(3), decoded["attempts"])
}

func TestColoredLoggerKeepsJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	log := NewColoredLogger(WithOutput(&buf), WithJSON())

	log.Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestColoredLoggerPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewColoredLogger(WithOutput(&buf))

	log.Info("plain %s", "text")
	assert.Contains(t, buf.String(), "[INFO] plain text")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWithDerivesFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewStandardLogger(WithOutput(&buf))
	child := base.With(String("component", "catalog"))

	child.Info("listing apps")
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=catalog")
	assert.NotContains(t, lines[1], "component=catalog")

	base.SetLevel(LevelError)
	assert.Equal(t, LevelError, child.GetLevel())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestMockLoggerRecordsEntries(t *testing.T) {
	mock := NewMockLogger()
	mock.Warn("download attempt %d failed", 2)
	mock.InfoContext(context.Background(), "done")

	assert.True(t, mock.HasEntry(LevelWarn, "attempt 2"))
	assert.Equal(t, 1, mock.CountEntries(LevelInfo))

	child := mock.With(String("component", "storage"))
	child.WarnContext(WithRelease(context.Background(), "demo", "9"), "head failed")
	entry, ok := mock.Find(LevelWarn, "head failed")
	require.True(t, ok)
	value, _ := entry.Field("component")
	assert.Equal(t, "storage", value)
	assert.Equal(t, "demo", entry.Run.App)

	mock.Reset()
	assert.Empty(t, mock.GetEntries())
}

func TestSpinnerProgressFinalLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewSpinnerProgress(&buf)
	p.Start("Connecting")
	p.Fail("Connecting")
	p.Stop("Connecting")

	assert.True(t, strings.HasSuffix(buf.String(), "\r✕ Connecting\n\r✓ Connecting\n"))
}
