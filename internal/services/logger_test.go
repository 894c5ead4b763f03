package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("otp", &buf, slog.LevelInfo, true)

	logger.Debug("hidden")
	logger.Warn("dispatch failed", "phone", "+989****", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "dispatch failed", entry["msg"])
	assert.Equal(t, "otp", entry["service"])
	assert.Equal(t, "+989****", entry["phone"])
	assert.Equal(t, "boom", entry["error"])
}

func TestProductionLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("otp", &buf, slog.LevelDebug, false)

	logger.Debug("circuit transition", "state", "HALF_OPEN")
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "service=otp")
	assert.Contains(t, out, "state=HALF_OPEN")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerInTestEnv(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	_, ok := NewLogger("otp", true).(*NoOpLogger)
	assert.True(t, ok)
}

func TestNewLoggerFormatFollowsProductionFlag(t *testing.T) {
	t.Setenv("GO_ENV", "")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	newLogger("otp", &buf, true).Info("started")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "started", entry["msg"])

	buf.Reset()
	newLogger("otp", &buf, false).Info("started")
	assert.Contains(t, buf.String(), "msg=started")
}

func TestProductionLoggerLeavesCallerArgsIntact(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger("otp", &buf, slog.LevelInfo, true)

	cause := errors.New("boom")
	args := []interface{}{"phone", "+989****", "error", cause}
	logger.Error("dispatch failed", args...)

	assert.Same(t, cause, args[3])
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
