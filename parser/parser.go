package parser

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Actions reported by `go test -json` (see `go doc test2json`).
const (
	ActionStart       = "start"
	ActionRun         = "run"
	ActionPause       = "pause"
	ActionCont        = "cont"
	ActionPass        = "pass"
	ActionBench       = "bench"
	ActionFail        = "fail"
	ActionOutput      = "output"
	ActionSkip        = "skip"
	ActionBuildOutput = "build-output"
	ActionBuildFail   = "build-fail"
)

// ErrNoAction is returned for JSON lines that are not test2json events.
var ErrNoAction = errors.New("json line has no Action")

// TestEvent represents a single event from `go test -json` output
type TestEvent struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	Test        string    `json:"Test,omitempty"`
	Output      string    `json:"Output,omitempty"`
	Elapsed     float64   `json:"Elapsed,omitempty"`
	Source      string    `json:"Source,omitempty"`
	ImportPath  string    `json:"ImportPath,omitempty"`
	FailedBuild string    `json:"FailedBuild,omitempty"`
}

// ParseEvent parses a single line of JSON from `go test -json` output
func ParseEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, ErrNoAction
	}
	return event, nil
}

// IsTerminal reports whether the event ends a test or package.
func (e TestEvent) IsTerminal() bool {
	switch e.Action {
	case ActionPass, ActionFail, ActionSkip:
		return true
	}
	return false
}

// ElapsedDuration converts the Elapsed seconds into a duration.
func (e TestEvent) ElapsedDuration() time.Duration {
	return time.Duration(e.Elapsed * float64(time.Second))
}

// SplitTestName splits a (sub)test name like "TestA/case_1/leaf" into its
// segments. An empty name has no segments.
func SplitTestName(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, "/")
}

// ParentTestName returns the name of the enclosing test, or "" for a top-level test.
func ParentTestName(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}
