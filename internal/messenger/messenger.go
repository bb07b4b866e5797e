// Package messenger provides the pluggable sink for operator-facing rebuild
// progress. A message may leave the line open (lineBreak=false) so the next
// message continues it, e.g. "Rebuilding elements from 0, 500 count... " then
// "Updated RT-index rt_docs.".
package messenger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Messenger receives progress messages in emission order.
type Messenger interface {
	Say(message string, lineBreak bool)
}

// Func adapts a plain function to Messenger.
type Func func(message string, lineBreak bool)

// Say calls f.
func (f Func) Say(message string, lineBreak bool) { f(message, lineBreak) }

// Discard drops every message.
var Discard Messenger = Func(func(string, bool) {})

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer prints messages to an io.Writer, appending a newline unless the
// caller keeps the line open.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer printing to w, or to os.Stdout when w is nil.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{w: w}
}

// Say implements Messenger.
func (m *Writer) Say(message string, lineBreak bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lineBreak {
		fmt.Fprintln(m.w, message)
		return
	}
	fmt.Fprint(m.w, message)
}

// ---------------------------------------------------------------------------
// Logger
// ---------------------------------------------------------------------------

// Logger forwards progress to a structured logger. Messages that leave the
// line open are held until a line-breaking message completes the line, which
// is then logged as a single record.
type Logger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	level   slog.Level
	pending strings.Builder
}

// NewLogger returns a Logger writing info records to logger, or to
// slog.Default() when logger is nil.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, level: slog.LevelInfo}
}

// Say implements Messenger.
func (m *Logger) Say(message string, lineBreak bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.WriteString(message)
	if !lineBreak {
		return
	}
	line := strings.TrimSpace(m.pending.String())
	m.pending.Reset()
	if line == "" {
		return
	}
	m.logger.Log(context.Background(), m.level, line, "component", "rebuild")
}

// Flush logs any held partial line.
func (m *Logger) Flush() {
	m.Say("", true)
}
