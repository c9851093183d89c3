// ABOUTME: Level-gated diagnostic logger built on slog levels
// ABOUTME: Writes to an injectable stderr so hook output stays separate from stdout

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger prints "[LEVEL] message" lines to its writer when the level allows.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	level atomic.Int64
}

// New creates a Logger writing to w at LevelWarn, which keeps the host's
// stderr free of chatter unless debugging is requested.
func New(w io.Writer) *Logger {
	l := &Logger{w: w}
	l.level.Store(int64(LevelWarn))
	return l
}

// SetLevel sets the minimum level that is written.
func (l *Logger) SetLevel(lv slog.Level) {
	l.level.Store(int64(lv))
}

// GetLevel returns the current level.
func (l *Logger) GetLevel() slog.Level {
	return slog.Level(l.level.Load())
}

func (l *Logger) logf(lv slog.Level, tag, format string, args ...any) {
	if lv < l.GetLevel() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "["+tag+"] "+format+"\n", args...)
}

// Debug logs a debug message if the level allows it.
func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, "DEBUG", format, args...) }

// Info logs an info message if the level allows it.
func (l *Logger) Info(format string, args ...any) { l.logf(LevelInfo, "INFO", format, args...) }

// Warn logs a warning message if the level allows it.
func (l *Logger) Warn(format string, args ...any) { l.logf(LevelWarn, "WARN", format, args...) }

// Error logs an error message (always emitted).
func (l *Logger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[ERROR] "+format+"\n", args...)
}

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// std is the process-wide logger used by binaries before a runner exists.
var std = New(os.Stderr)

// SetLevel sets the level of the process-wide logger.
func SetLevel(lv slog.Level) { std.SetLevel(lv) }

// Debug logs to the process-wide logger.
func Debug(format string, args ...any) { std.Debug(format, args...) }

// Warn logs to the process-wide logger.
func Warn(format string, args ...any) { std.Warn(format, args...) }
