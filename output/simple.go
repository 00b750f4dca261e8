package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/ansel1/tallure/output/format"
	"github.com/ansel1/tallure/results"
)

// SimpleOutput writes plain text progress for -notty mode. It prints one line
// per reported spec as events arrive and the summary once the run is over.
type SimpleOutput struct {
	writer io.Writer
	err    error // first write error, later writes are skipped
}

// NewSimpleOutput creates a simple output writer
func NewSimpleOutput(w io.Writer) *SimpleOutput {
	return &SimpleOutput{writer: w}
}

// Observe prints evt. Write errors are kept and reported by WriteSummary.
func (s *SimpleOutput) Observe(evt results.Event) {
	switch evt.Type {
	case results.EventRawOutput:
		s.println(string(evt.RawLine))

	case results.EventSpecComplete:
		s.writeSpec(evt.Spec)

	case results.EventError:
		s.println(fmt.Sprintf("Error: %v", evt.Err))
	}
}

func (s *SimpleOutput) writeSpec(spec *results.SpecEvent) {
	path := strings.Join(append(append([]string{}, spec.SuitePath...), spec.Title), " > ")
	elapsed := spec.Stop.Sub(spec.Start).Seconds()

	switch spec.Outcome() {
	case results.OutcomePassed:
		s.println(fmt.Sprintf("%s %s (%.2fs)", format.SymbolPass, path, elapsed))
	case results.OutcomeSkipped:
		s.println(fmt.Sprintf("%s %s", format.SymbolSkip, path))
	default:
		s.println(fmt.Sprintf("%s %s (%.2fs)", format.SymbolFail, path, elapsed))
		for _, line := range spec.DiagnosticLines {
			s.println(format.IndentLevel2 + strings.TrimRight(line, "\n"))
		}
	}
}

// WriteSummary prints the final summary. It returns the first error met by
// any write, including those of earlier Observe calls.
func (s *SimpleOutput) WriteSummary(summary *format.Summary) error {
	// Format summary using default terminal width (80 columns)
	formatter := format.NewSummaryFormatter(80).WithColors(false)
	s.println("")
	s.println(formatter.Format(summary))
	return s.err
}

func (s *SimpleOutput) println(line string) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintln(s.writer, line)
}
