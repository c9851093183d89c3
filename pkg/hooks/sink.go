// ABOUTME: Logging sink contract keyed by (event, hook) plus stock implementations
// ABOUTME: File rotation and retention belong to the sink, never to the runner

package hooks

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives one message per noteworthy runner step. Implementations must
// be safe for concurrent use: handlers finish on different goroutines.
type Sink interface {
	Write(event, hook, message string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Write(string, string, string) {}

// WriterSink formats messages as "event hook: message" lines on an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(event, hook, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s: %s\n", event, hook, message)
}

// MultiSink fans every message out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Write(event, hook, message string) {
	for _, s := range m {
		s.Write(event, hook, message)
	}
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(event, hook, message string)

func (f SinkFunc) Write(event, hook, message string) { f(event, hook, message) }
