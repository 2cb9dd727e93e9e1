package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger keeps the Info/Debug/Error surface used across the harness and
// carries structured attributes through slog.
type Logger struct {
	Level string
	sl    *slog.Logger
}

// NewLogger writes text lines to stderr.
func NewLogger(level string) *Logger {
	return NewLoggerWithWriter(level, os.Stderr, false)
}

// NewLoggerWithWriter lets callers pick the destination and JSON output.
func NewLoggerWithWriter(level string, w io.Writer, json bool) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Level: strings.ToLower(level), sl: slog.New(h)}
}

// Discard drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{Level: "error", sl: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps debug/info/warn/error onto slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.sl.Error(msg, args...)
}

// With returns a child logger that adds args to every line.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Level: l.Level, sl: l.sl.With(args...)}
}

// Slog exposes the underlying logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return l.sl
}
