package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultsToText(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
	require.Equal(t, FormatText, DefaultConfig().Format)
}

func TestSanitizeLogValueStripsControlChars(t *testing.T) {
	got := sanitizeLogValue("hello\nworld\r\t!")
	require.Equal(t, "hello world !", got)
}

func TestSanitizeLogValueDropsNonSpaceControl(t *testing.T) {
	got := sanitizeLogValue("a\x07b")
	require.Equal(t, "ab", got)
}

func TestWithJobIDAndRequestIDAttachContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, "job-1")
	ctx = WithRequestID(ctx, "req-1")

	require.Equal(t, "job-1", ctx.Value(ctxKeyJobID))
	require.Equal(t, "req-1", ctx.Value(ctxKeyRequestID))
}

func TestLoggerWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()

	cfg := &Config{Level: slog.LevelInfo, Format: FormatJSON, Output: f, Version: "test"}
	logger := NewLogger(cfg)

	ctx := WithJobID(context.Background(), "job-42")
	logger = logger.WithContext(ctx)
	logger.Info("hello")

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	buf.Write(data)
	require.True(t, strings.Contains(buf.String(), "job-42"))
}

func TestNoOpLoggerDoesNothing(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	require.Equal(t, NoOpLogger{}, l.With("a", 1))
	require.Equal(t, NoOpLogger{}, l.WithContext(context.Background()))
}
