// ABOUTME: File sink: appends slog text records to <dir>/<event>.log per invocation
// ABOUTME: Messages are clipped to a display width with go-runewidth; no rotation

package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

// DefaultMaxWidth is the display width messages are clipped to when the
// caller does not configure one.
const DefaultMaxWidth = 500

// FileSink writes one text record per message to a file named after the
// event. Files are opened lazily and kept open until Close.
type FileSink struct {
	dir      string
	maxWidth int

	mu      sync.Mutex
	files   map[string]*os.File
	loggers map[string]*slog.Logger
	err     error
}

// NewFileSink creates the directory if needed and returns a sink writing
// into it. maxWidth <= 0 selects DefaultMaxWidth.
func NewFileSink(dir string, maxWidth int) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &FileSink{
		dir:      dir,
		maxWidth: maxWidth,
		files:    make(map[string]*os.File),
		loggers:  make(map[string]*slog.Logger),
	}, nil
}

// Write records message under the given event and hook names. Failures are
// remembered and returned by Close; logging never fails a hook.
func (s *FileSink) Write(event, hook, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lg, err := s.loggerFor(event)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return
	}
	lg.Info(Clip(message, s.maxWidth), "hook", hook)
}

func (s *FileSink) loggerFor(event string) (*slog.Logger, error) {
	name := fileName(event)
	if lg, ok := s.loggers[name]; ok {
		return lg, nil
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	lg := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: LevelDebug})).With("event", event)
	s.files[name] = f
	s.loggers[name] = lg
	return lg, nil
}

// Close closes every opened file and returns the first error seen.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	for name, f := range s.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		delete(s.files, name)
		delete(s.loggers, name)
	}
	return err
}

// Path returns the file an event is logged to.
func (s *FileSink) Path(event string) string {
	return filepath.Join(s.dir, fileName(event))
}

// fileName maps an event name to a safe file name.
func fileName(event string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, event)
	if clean == "" {
		clean = "unknown"
	}
	return clean + ".log"
}

// Clip truncates s to width display cells, marking the cut with "…".
func Clip(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
