package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Fields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, nil)

	log.Info("reading received",
		String("device_id", "dev-1"),
		Int("channels", 3),
		Float64("value", 36.5),
		Bool("active", true),
		Duration("elapsed", 1500*time.Millisecond),
		Error(errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "reading received", lines[0]["msg"])
	assert.Equal(t, "dev-1", lines[0]["device_id"])
	assert.InDelta(t, 3, lines[0]["channels"], 0)
	assert.InDelta(t, 36.5, lines[0]["value"], 0)
	assert.Equal(t, true, lines[0]["active"])
	assert.Equal(t, "1.5s", lines[0]["elapsed"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, nil)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")
	assert.Len(t, decodeLines(t, &buf), 2)

	log.SetLevel(LogLevelDebug)
	log.Debug("now visible")
	assert.Len(t, decodeLines(t, &buf), 3)
}

func TestSlogLogger_ModuleAndWith(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelInfo, nil)

	child := base.Module("alerting").With(String("device_id", "dev-9"))
	child.Info("evaluated")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "alerting", lines[0]["module"])
	assert.Equal(t, "dev-9", lines[0]["device_id"])
}

func TestSlogLogger_TextFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewSlogLoggerWithOptions(&buf, Options{Level: LogLevelInfo, Format: FormatText})
	log.Info("hello", String("k", "v"))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"WARNING", LogLevelWarn},
		{" error ", LogLevelError},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestError_Nil(t *testing.T) {
	t.Parallel()
	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Empty(t, f.Value)
}
