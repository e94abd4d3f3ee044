package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var console bytes.Buffer
	l, err := New(Options{File: path, Console: zapcore.AddSync(&console)})
	require.NoError(t, err)

	l.Info("analysis", "summary built", map[string]any{"rows": 3})
	l.Debug("analysis", "hidden", nil)
	l.Error("chat", "model failed", map[string]any{"error": errors.New("boom")})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "summary built", entry["message"])
	assert.Equal(t, "analysis", entry["module"])
	assert.Equal(t, map[string]any{"rows": float64(3)}, entry["details"])

	// console defaults to warn and above
	assert.NotContains(t, console.String(), "summary built")
	assert.Contains(t, console.String(), "model failed")
}

func TestDebugConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Options{Debug: true, Production: true, Console: zapcore.AddSync(&console)})
	require.NoError(t, err)
	l.Debug("cmd", "resolved provider", map[string]any{"provider": "ollama"})
	require.NoError(t, l.Sync())
	assert.Contains(t, console.String(), `"provider":"ollama"`)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Warn("x", "y", nil)
	assert.NoError(t, l.Sync())
}

func TestWarnKeepsErrorMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Options{File: path, Console: zapcore.AddSync(&bytes.Buffer{})})
	require.NoError(t, err)

	wrapped := fmt.Errorf("parse response: %w", errors.New("unexpected end"))
	l.Warn("chat", "fallback", map[string]any{"error": wrapped, "cause": errors.New("bad json"), "turn": 2})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "parse response: unexpected end", entry["error"])
	assert.Equal(t, map[string]any{
		"error": "parse response: unexpected end",
		"cause": "bad json",
		"turn":  float64(2),
	}, entry["details"])
}
