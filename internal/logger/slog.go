package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// LogLevel mirrors the slog levels under names used in configuration files.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLevel maps a configuration string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures NewSlogLoggerWithOptions.
type Options struct {
	Level    LogLevel
	Format   Format
	Timezone *time.Location
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	handler slog.Handler
	level   *slog.LevelVar
}

// NewSlogLogger creates a JSON logger writing to w. A nil timezone keeps
// timestamps in UTC.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) *SlogLogger {
	return NewSlogLoggerWithOptions(w, Options{Level: level, Format: FormatJSON, Timezone: tz})
}

// NewSlogLoggerWithOptions creates a logger with an explicit handler format.
func NewSlogLoggerWithOptions(w io.Writer, opts Options) *SlogLogger {
	lv := new(slog.LevelVar)
	lv.Set(opts.Level.slogLevel())

	tz := opts.Timezone
	if tz == nil {
		tz = time.UTC
	}
	handlerOpts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().In(tz))
			}
			return a
		},
	}

	var h slog.Handler
	if opts.Format == FormatText {
		h = slog.NewTextHandler(w, handlerOpts)
	} else {
		h = slog.NewJSONHandler(w, handlerOpts)
	}
	return &SlogLogger{handler: h, level: lv}
}

// SetLevel changes the minimum level at runtime for this logger and all
// loggers derived from it.
func (l *SlogLogger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields) }
func (l *SlogLogger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l *SlogLogger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l *SlogLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields) }

// With returns a child logger that always includes fields.
func (l *SlogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &SlogLogger{handler: l.handler.WithAttrs(toAttrs(fields)), level: l.level}
}

// Module returns a child logger tagged with module=name.
func (l *SlogLogger) Module(name string) Logger {
	return l.With(String("module", name))
}

func (l *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(toAttrs(fields)...)
	_ = l.handler.Handle(ctx, r)
}

func toAttrs(fields []Field) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	return attrs
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, nil)
}
