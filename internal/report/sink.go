// Package report provides dbfill.Sink implementations for report lines
// such as dropped-relation warnings.
//
// All sinks serialize concurrent writes.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// WriterSink writes each line, newline terminated, to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// WriteLine writes message followed by a newline. Write errors are dropped.
func (s *WriterSink) WriteLine(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, message)
}

// LoggerSink forwards lines to a dbfill.Logger as warnings.
// The logger adds its own warning prefix, so a leading dbfill.WarningPrefix is stripped.
type LoggerSink struct {
	logger dbfill.Logger
}

// NewLoggerSink creates a sink forwarding to logger.
func NewLoggerSink(logger dbfill.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// WriteLine logs message as a warning.
func (s *LoggerSink) WriteLine(message string) {
	s.logger.Warn("%s", strings.TrimPrefix(message, dbfill.WarningPrefix))
}

// Buffer collects lines in memory.
type Buffer struct {
	mu    sync.Mutex
	lines []string
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// WriteLine appends message.
func (b *Buffer) WriteLine(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, message)
}

// Lines returns a copy of the collected lines in write order.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// FlushTo writes the collected lines to sink and clears the buffer.
func (b *Buffer) FlushTo(sink dbfill.Sink) {
	b.mu.Lock()
	lines := b.lines
	b.lines = nil
	b.mu.Unlock()

	for _, line := range lines {
		sink.WriteLine(line)
	}
}

var (
	_ dbfill.Sink = (*WriterSink)(nil)
	_ dbfill.Sink = (*LoggerSink)(nil)
	_ dbfill.Sink = (*Buffer)(nil)
)

// Handler holds the sink configured for a run.
type Handler struct {
	sink dbfill.Sink
}

// NewHandler creates a Handler. sink may be nil.
func NewHandler(sink dbfill.Sink) *Handler {
	return &Handler{sink: sink}
}

// Sink returns the configured sink, or dbfill.ErrSinkNotConfigured.
func (h *Handler) Sink() (dbfill.Sink, error) {
	if h == nil || h.sink == nil {
		return nil, dbfill.ErrSinkNotConfigured
	}
	return h.sink, nil
}
