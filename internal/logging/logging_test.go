package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		level          slog.Level
		expectedLevels []string
	}{
		{name: "debug", level: slog.LevelDebug, expectedLevels: []string{"debug", "info", "warn", "error"}},
		{name: "info", level: slog.LevelInfo, expectedLevels: []string{"info", "warn", "error"}},
		{name: "error", level: slog.LevelError, expectedLevels: []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, flush, err := New(WithLevel(tt.level), WithWriter(&buf))
			require.NoError(t, err)

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")
			flush()

			var levels []string
			for _, entry := range decodeLines(t, &buf) {
				levels = append(levels, entry["level"].(string))
			}
			assert.Equal(t, tt.expectedLevels, levels)
		})
	}
}

func TestNew_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, flush, err := New(WithWriter(&buf))
	require.NoError(t, err)

	logger.With("pass_id", "abc").Info("Pass finished", "published", 2)
	flush()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pass finished", entries[0]["msg"])
	assert.Equal(t, "abc", entries[0]["pass_id"])
	assert.EqualValues(t, 2, entries[0]["published"])
}

func TestNew_InjectsTraceIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, flush, err := New(WithWriter(&buf))
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")

	logger.InfoContext(ctx, "inside span")
	logger.InfoContext(context.Background(), "outside span")
	span.End()
	flush()

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entries[0]["span_id"])
	assert.NotContains(t, entries[1], "trace_id")
}

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, flush, err := New(WithFormat(FormatConsole), WithWriter(&buf))
	require.NoError(t, err)
	logger.Info("hello", "k", "v")
	flush()
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))

	_, _, err = New(WithFormat("xml"))
	assert.EqualError(t, err, `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected slog.Level
		ok       bool
	}{
		{in: "debug", expected: slog.LevelDebug, ok: true},
		{in: "INFO", expected: slog.LevelInfo, ok: true},
		{in: "", expected: slog.LevelInfo, ok: true},
		{in: "warning", expected: slog.LevelWarn, ok: true},
		{in: "error", expected: slog.LevelError, ok: true},
		{in: "verbose", expected: slog.LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			level, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.expected, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLevelFromEnv(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("log_level", "debug")
	assert.Equal(t, slog.LevelDebug, LevelFromEnv(v))
}
