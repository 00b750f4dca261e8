package results

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/tallure/engine"
	"github.com/ansel1/tallure/parser"
	"go.uber.org/zap"
)

// Collector turns engine events into spec-complete events.
//
// It is the single consumer of engine.Event and the only writer of the Run
// state. Leaf tests become specs. A test that spawned subtests is a suite;
// it only becomes a spec itself when it fails while all of its subtests
// passed. A test that runs again (go test -count=N) starts a new attempt
// and yields a spec per attempt.
type Collector struct {
	run      *Run
	mu       sync.RWMutex
	finished bool

	// "package/test" -> TestResults key of the latest attempt
	current map[string]string

	browserName          string
	restoreSubtestSpaces bool
	logger               *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithBrowserName sets the runtime name attached to every spec.
func WithBrowserName(name string) Option {
	return func(c *Collector) {
		c.browserName = name
	}
}

// WithRestoreSubtestSpaces controls whether "_" in subtest names is turned
// back into the space go test replaced.
func WithRestoreSubtestSpaces(restore bool) Option {
	return func(c *Collector) {
		c.restoreSubtestSpaces = restore
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// NewCollector creates a new result collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		run:                  NewRun(),
		current:              make(map[string]string),
		browserName:          runtime.Version(),
		restoreSubtestSpaces: true,
		logger:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream pushes every engine event through the collector and forwards the
// resulting events. The returned channel closes after EventRunComplete.
func (c *Collector) Stream(in <-chan engine.Event) <-chan Event {
	out := make(chan Event, 100)
	go func() {
		defer close(out)
		for evt := range in {
			for _, e := range c.Push(evt) {
				out <- e
			}
		}
		// input closed without EventComplete (cancelled)
		for _, e := range c.Finish() {
			out <- e
		}
	}()
	return out
}

// Push processes one engine event and returns the events it produced.
func (c *Collector) Push(evt engine.Event) []Event {
	switch evt.Type {
	case engine.EventRawLine:
		return []Event{NewRawOutputEvent(evt.RawLine)}
	case engine.EventTest:
		return c.handleTestEvent(evt.TestEvent)
	case engine.EventError:
		c.logger.Warn("engine error", zap.Error(evt.Error))
		return []Event{NewErrorEvent(evt.Error)}
	case engine.EventComplete:
		return c.Finish()
	}
	return nil
}

// handleTestEvent processes a test event and updates the state.
func (c *Collector) handleTestEvent(event parser.TestEvent) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return nil
	}

	run := c.run
	if run.StartTime.IsZero() {
		run.StartTime = event.Time
	}

	// build output carries ImportPath, not Package
	if event.Package == "" {
		switch event.Action {
		case parser.ActionBuildOutput, parser.ActionBuildFail:
			if output := strings.TrimRight(event.Output, "\n"); output != "" {
				run.NonTestOutput = append(run.NonTestOutput, output)
				return []Event{NewNonTestOutputEvent(output)}
			}
		}
		return nil
	}

	pkg, exists := run.Packages[event.Package]
	if !exists {
		pkg = &PackageResult{
			Name:      event.Package,
			Status:    StatusRunning,
			StartTime: event.Time,
		}
		run.Packages[event.Package] = pkg
		run.PackageOrder = append(run.PackageOrder, event.Package)
	}

	if event.Test == "" {
		c.handlePackageEvent(pkg, event)
		return nil
	}
	return c.handleTestLevelEvent(run, pkg, event)
}

func (c *Collector) handlePackageEvent(pkg *PackageResult, event parser.TestEvent) {
	switch event.Action {
	case parser.ActionOutput:
		if output := strings.TrimRight(event.Output, "\n"); output != "" {
			pkg.Output = output
		}
	case parser.ActionPass:
		pkg.Status = StatusPassed
		pkg.Elapsed = event.ElapsedDuration()
	case parser.ActionFail:
		pkg.Status = StatusFailed
		pkg.Elapsed = event.ElapsedDuration()
	case parser.ActionSkip:
		pkg.Status = StatusSkipped
		pkg.Elapsed = event.ElapsedDuration()
	}
}

func (c *Collector) handleTestLevelEvent(run *Run, pkg *PackageResult, event parser.TestEvent) []Event {
	tr := c.testResult(run, event.Package, event.Test, event.Time)

	switch event.Action {
	case parser.ActionRun:
		if tr.Status != StatusRunning || tr.Emitted {
			tr = c.newAttempt(run, tr, event.Time)
		}
		tr.Status = StatusRunning
		if !event.Time.IsZero() {
			tr.StartTime = event.Time
		}

	case parser.ActionOutput:
		output := strings.TrimRight(event.Output, "\n")
		if output != "" && !isFramingLine(output) {
			tr.Output = append(tr.Output, output)
		}

	case parser.ActionPass, parser.ActionFail, parser.ActionSkip:
		if tr.Emitted {
			return nil
		}
		tr.Status = Status(event.Action)
		tr.Elapsed = event.ElapsedDuration()
		if tr.Status == StatusFailed {
			if parent := c.parentOf(run, tr); parent != nil {
				parent.FailedSubtests = true
			}
		}
		// a suite is only reported when its own code failed
		if tr.HasSubtests && (tr.Status != StatusFailed || tr.FailedSubtests) {
			return nil
		}
		spec := c.specFor(tr, event.Time)
		tr.Emitted = true
		run.Counts.add(spec.Outcome())
		pkg.Counts.add(spec.Outcome())
		c.logger.Debug("spec complete",
			zap.String("package", tr.Package),
			zap.String("test", tr.Name),
			zap.Int("attempt", tr.Attempt),
			zap.String("outcome", string(spec.Outcome())))
		return []Event{NewSpecCompleteEvent(spec)}
	}
	return nil
}

// testResult returns the latest attempt of a test, creating it and marking
// all enclosing tests as suites.
func (c *Collector) testResult(run *Run, pkg, name string, at time.Time) *TestResult {
	id := pkg + "/" + name
	tr, ok := run.TestResults[c.current[id]]
	if !ok {
		tr = c.addAttempt(run, id, &TestResult{
			Package:   pkg,
			Name:      name,
			Status:    StatusRunning,
			StartTime: at,
			Output:    make([]string, 0),
			Attempt:   1,
		})
	}
	if parent := parser.ParentTestName(name); parent != "" {
		c.testResult(run, pkg, parent, at).HasSubtests = true
	}
	return tr
}

// newAttempt replaces a finished test by a fresh attempt. The finished one
// stays in the run for the summary.
func (c *Collector) newAttempt(run *Run, prev *TestResult, at time.Time) *TestResult {
	return c.addAttempt(run, prev.Package+"/"+prev.Name, &TestResult{
		Package:   prev.Package,
		Name:      prev.Name,
		Status:    StatusRunning,
		StartTime: at,
		Output:    make([]string, 0),
		Attempt:   prev.Attempt + 1,
	})
}

func (c *Collector) addAttempt(run *Run, id string, tr *TestResult) *TestResult {
	key := id
	if tr.Attempt > 1 {
		key = fmt.Sprintf("%s#%d", id, tr.Attempt)
	}
	run.TestResults[key] = tr
	run.TestOrder = append(run.TestOrder, key)
	c.current[id] = key
	return tr
}

func (c *Collector) parentOf(run *Run, tr *TestResult) *TestResult {
	parent := parser.ParentTestName(tr.Name)
	if parent == "" {
		return nil
	}
	return run.TestResults[c.current[tr.Package+"/"+parent]]
}

func (c *Collector) specFor(tr *TestResult, end time.Time) SpecEvent {
	segments := parser.SplitTestName(tr.Name)
	if c.restoreSubtestSpaces {
		for i := 1; i < len(segments); i++ {
			segments[i] = strings.ReplaceAll(segments[i], "_", " ")
		}
	}

	start := tr.StartTime
	if end.IsZero() && !start.IsZero() {
		end = start.Add(tr.Elapsed)
	}
	if start.IsZero() && !end.IsZero() {
		start = end.Add(-tr.Elapsed)
	}

	lines := make([]string, len(tr.Output))
	copy(lines, tr.Output)

	return SpecEvent{
		BrowserName:     c.browserName,
		Package:         tr.Package,
		TestName:        tr.Name,
		Title:           segments[len(segments)-1],
		SuitePath:       append([]string{tr.Package}, segments[:len(segments)-1]...),
		Success:         tr.Status == StatusPassed,
		Skipped:         tr.Status == StatusSkipped,
		DiagnosticLines: lines,
		Start:           start,
		Stop:            end,
	}
}

// isFramingLine reports "=== RUN"-style and "--- PASS"-style lines, which
// go test prints around every test.
func isFramingLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "=== ") || strings.HasPrefix(trimmed, "--- ")
}

// Finish ends the run. Leaf tests that never reported a result are emitted
// as failed specs, followed by EventRunComplete. Later calls return nil.
func (c *Collector) Finish() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		return nil
	}
	c.finished = true

	var events []Event
	run := c.run
	for _, key := range run.TestOrder {
		tr := run.TestResults[key]
		if tr.Status != StatusRunning || tr.HasSubtests || tr.Emitted {
			continue
		}
		tr.Status = StatusInterrupted
		tr.Emitted = true
		spec := c.specFor(tr, time.Time{})
		run.Counts.add(spec.Outcome())
		run.Packages[tr.Package].Counts.add(spec.Outcome())
		c.logger.Debug("interrupted test reported as failed", zap.String("test", tr.Name))
		events = append(events, NewSpecCompleteEvent(spec))
	}
	for _, name := range run.PackageOrder {
		if pkg := run.Packages[name]; pkg.Status == StatusRunning {
			pkg.Status = StatusInterrupted
		}
	}

	run.EndTime = time.Now()
	return append(events, NewRunCompleteEvent())
}

// WithRun executes fn with the run while holding the read lock.
func (c *Collector) WithRun(fn func(*Run)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.run)
}
