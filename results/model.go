package results

import (
	"time"
)

// Status of a test or package as seen in the go test -json stream.
type Status string

const (
	StatusRunning     Status = "running"
	StatusPassed      Status = "pass"
	StatusFailed      Status = "fail"
	StatusSkipped     Status = "skip"
	StatusInterrupted Status = "interrupted"
)

// Outcome is the classification of a completed spec.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// SpecEvent describes one completed leaf test. It is built once by the
// Collector and consumed once by the reporter.
type SpecEvent struct {
	BrowserName     string    // runtime the test ran on, e.g. "go1.25.3"
	Package         string    // import path
	TestName        string    // full go test name, e.g. "TestA/sub"
	Title           string    // innermost name segment
	SuitePath       []string  // outermost first: package, then parent tests
	Success         bool      // runner reported pass
	Skipped         bool      // runner reported skip
	DiagnosticLines []string  // test output without framing lines
	Start           time.Time // zero when unknown
	Stop            time.Time // zero when unknown
}

// Outcome maps the runner flags onto an outcome. Skipped wins over success.
func (e SpecEvent) Outcome() Outcome {
	switch {
	case e.Skipped:
		return OutcomeSkipped
	case e.Success:
		return OutcomePassed
	default:
		return OutcomeFailed
	}
}

// Run is the state of one go test -json stream.
type Run struct {
	Packages      map[string]*PackageResult // Package name -> PackageResult
	PackageOrder  []string                  // Chronological order of package starts
	TestResults   map[string]*TestResult    // "package/testname" -> TestResult
	TestOrder     []string                  // Chronological order of TestResults keys
	StartTime     time.Time
	EndTime       time.Time
	NonTestOutput []string // Build errors, compilation output
	Counts        Counts   // Specs emitted, by outcome
}

// Counts tallies emitted specs.
type Counts struct {
	Passed  int
	Failed  int
	Skipped int
}

// Total returns the number of specs counted.
func (c Counts) Total() int {
	return c.Passed + c.Failed + c.Skipped
}

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomePassed:
		c.Passed++
	case OutcomeFailed:
		c.Failed++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// PackageResult represents the final result of a package's test run.
type PackageResult struct {
	Name      string
	Status    Status
	StartTime time.Time
	Elapsed   time.Duration
	Output    string // Last package-level output line (e.g., coverage)
	Counts    Counts
}

// TestResult tracks a single test while it runs.
type TestResult struct {
	Package     string
	Name        string
	Status      Status
	StartTime   time.Time
	Elapsed     time.Duration
	Output      []string // Output without "===" / "---" framing lines
	HasSubtests bool     // a subtest was seen; this test is structure, not a spec
	Emitted     bool
	Attempt     int // 1 for the first run, incremented by go test -count
	// a direct subtest failed, so the failure is already reported
	FailedSubtests bool
}

// NewRun creates an empty run.
func NewRun() *Run {
	return &Run{
		Packages:      make(map[string]*PackageResult),
		PackageOrder:  make([]string, 0),
		TestResults:   make(map[string]*TestResult),
		TestOrder:     make([]string, 0),
		NonTestOutput: make([]string, 0),
	}
}
