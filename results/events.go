package results

// EventType identifies the type of event emitted by the Collector.
type EventType string

const (
	EventSpecComplete  EventType = "spec_complete"   // A leaf test finished
	EventRunComplete   EventType = "run_complete"    // The input stream ended
	EventRawOutput     EventType = "raw_output"      // Raw non-test output
	EventNonTestOutput EventType = "non_test_output" // Build errors, compilation output
	EventError         EventType = "error"           // Input could not be read
)

// Event represents a high-level event emitted by the Collector.
type Event struct {
	Type    EventType
	Spec    *SpecEvent // For EventSpecComplete
	RawLine []byte     // For EventRawOutput
	Output  string     // For EventNonTestOutput
	Err     error      // For EventError
}

// NewSpecCompleteEvent creates a new SpecComplete event.
func NewSpecCompleteEvent(spec SpecEvent) Event {
	return Event{
		Type: EventSpecComplete,
		Spec: &spec,
	}
}

// NewRunCompleteEvent creates a new RunComplete event.
func NewRunCompleteEvent() Event {
	return Event{Type: EventRunComplete}
}

// NewRawOutputEvent creates a new RawOutput event.
func NewRawOutputEvent(line []byte) Event {
	return Event{
		Type:    EventRawOutput,
		RawLine: line,
	}
}

// NewNonTestOutputEvent creates a new NonTestOutput event.
func NewNonTestOutputEvent(output string) Event {
	return Event{
		Type:   EventNonTestOutput,
		Output: output,
	}
}

func NewErrorEvent(err error) Event {
	return Event{
		Type: EventError,
		Err:  err,
	}
}
