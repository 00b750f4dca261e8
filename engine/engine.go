package engine

import (
	"bufio"
	"context"
	"io"

	"github.com/ansel1/tallure/parser"
	"go.uber.org/zap"
)

// DefaultMaxLineSize bounds a single input line. Test output lines can be
// much longer than bufio's 64KiB default.
const DefaultMaxLineSize = 4 * 1024 * 1024

// EventType identifies the type of event emitted by the engine
type EventType string

const (
	EventRawLine  EventType = "raw"      // Non-JSON line from input
	EventTest     EventType = "test"     // Parsed test event from go test -json
	EventError    EventType = "error"    // Error occurred during processing
	EventComplete EventType = "complete" // Input stream finished
)

// Event represents a single event emitted by the engine
type Event struct {
	Type      EventType
	RawLine   []byte           // Populated for EventRawLine
	TestEvent parser.TestEvent // Populated for EventTest
	Error     error            // Populated for EventError
}

// Engine turns a go test -json byte stream into events.
// It keeps no test state; that is the job of results.Collector.
type Engine struct {
	rawWriter   io.Writer
	jsonWriter  io.Writer
	maxLineSize int
	logger      *zap.Logger
}

// Option configures the engine
type Option func(*Engine)

// WithRawOutput configures engine to write all raw lines to a file
func WithRawOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.rawWriter = w
	}
}

// WithJSONOutput configures engine to write parsed JSON events to a file
func WithJSONOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.jsonWriter = w
	}
}

// WithMaxLineSize sets the longest line the scanner accepts.
func WithMaxLineSize(n int) Option {
	return func(e *Engine) {
		e.maxLineSize = n
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a new event processing engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxLineSize: DefaultMaxLineSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stream reads from input, parses lines, and emits events via channel.
// Unless ctx is cancelled, the last event is EventComplete, after which the
// channel is closed.
func (e *Engine) Stream(ctx context.Context, input io.Reader) <-chan Event {
	events := make(chan Event, 100)

	go func() {
		defer close(events)
		send := func(evt Event) bool {
			select {
			case events <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}
		defer send(Event{Type: EventComplete})

		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 0, 64*1024), e.maxLineSize)
		for scanner.Scan() {
			line := scanner.Bytes()

			if e.rawWriter != nil {
				e.tee(e.rawWriter, line)
			}

			testEvent, err := parser.ParseEvent(line)
			if err != nil {
				// scanner reuses its buffer
				lineCopy := make([]byte, len(line))
				copy(lineCopy, line)
				if !send(Event{Type: EventRawLine, RawLine: lineCopy}) {
					return
				}
				continue
			}

			if e.jsonWriter != nil {
				e.tee(e.jsonWriter, line)
			}

			if !send(Event{Type: EventTest, TestEvent: testEvent}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			e.logger.Warn("input scan stopped", zap.Error(err))
			send(Event{Type: EventError, Error: err})
		}
	}()

	return events
}

func (e *Engine) tee(w io.Writer, line []byte) {
	if _, err := w.Write(line); err != nil {
		e.logger.Warn("tee write failed", zap.Error(err))
		return
	}
	_, _ = w.Write([]byte("\n"))
}
