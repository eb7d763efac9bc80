package tui

import (
	"bytes"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// LogMsg appends a line to the log pane.
type LogMsg struct {
	Line string
}

// LogSink receives log output while the alert screen owns the terminal.
// It implements zapcore.WriteSyncer.
type LogSink struct {
	mu      sync.Mutex
	partial bytes.Buffer
	maxLine int
	lines   chan string
	done    chan struct{}
	closed  bool
}

// NewLogSink creates a sink that forwards complete lines to the program.
func NewLogSink(program *tea.Program) *LogSink {
	return newLogSink(program.Send)
}

func newLogSink(send func(tea.Msg)) *LogSink {
	s := &LogSink{
		maxLine: 300,
		lines:   make(chan string, 200),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for line := range s.lines {
			send(LogMsg{Line: line})
		}
	}()
	return s
}

// Close stops forwarding once queued lines are sent. The program must
// still be running or already have exited.
func (s *LogSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

// Write implements io.Writer, forwarding each complete line.
func (s *LogSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partial.Write(p)
	for {
		line, err := s.partial.ReadString('\n')
		if err != nil {
			// Keep the unterminated tail for the next write.
			s.partial.Reset()
			s.partial.WriteString(line)
			break
		}
		s.forward(line)
	}
	return len(p), nil
}

// Sync forwards any buffered partial line.
func (s *LogSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partial.Len() > 0 {
		s.forward(s.partial.String())
		s.partial.Reset()
	}
	return nil
}

func (s *LogSink) forward(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || s.closed {
		return
	}
	if s.maxLine > 0 && len(line) > s.maxLine {
		line = line[:s.maxLine] + "..."
	}
	// A full queue drops the line rather than stall the logger.
	select {
	case s.lines <- line:
	default:
	}
}
