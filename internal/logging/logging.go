// Package logging builds the process slog logger. Records are encoded by zap
// (through zapr and logr's slog bridge) and carry the trace and span ids of the
// active OpenTelemetry span.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output encodings accepted by WithFormat
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Option configures New
type Option func(*options)

type options struct {
	level  slog.Level
	format string
	out    io.Writer
}

// WithLevel sets the minimum level
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFormat selects json or console encoding
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithWriter redirects output, stderr by default
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// New returns a slog logger backed by zap and a func that flushes it.
func New(opts ...Option) (*slog.Logger, func(), error) {
	o := &options{level: slog.LevelInfo, format: FormatJSON, out: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = levelEncoder

	var encoder zapcore.Encoder
	switch o.format {
	case FormatJSON, "":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", o.format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(o.out), zap.NewAtomicLevelAt(zapLevel(o.level)))
	zl := zap.New(core)

	handler := &traceHandler{Handler: logr.ToSlogHandler(zapr.NewLogger(zl))}
	return slog.New(handler), func() { _ = zl.Sync() }, nil
}

// LevelFromEnv reads LOG_LEVEL through v (LEGISYNC_LOG_LEVEL with the config env
// prefix), falling back to the unprefixed LOG_LEVEL.
func LevelFromEnv(v *viper.Viper) slog.Level {
	levelStr := v.GetString("log_level")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	level, ok := ParseLevel(levelStr)
	if !ok {
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
	}
	return level
}

// ParseLevel maps debug|info|warn|error to a slog level. Unknown values report
// false and yield info.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// zapLevel mirrors the level mapping zapr applies to slog records, so debug
// records (-4) pass the zap level check.
func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.Level(l)
	}
}

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l < zapcore.DebugLevel {
		l = zapcore.DebugLevel
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// traceHandler wraps an slog.Handler to automatically inject OpenTelemetry
// trace_id and span_id into every log record, enabling log-trace correlation.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}
