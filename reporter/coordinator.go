// Package reporter translates completed specs into Allure test records.
//
// Each spec gets its own scope and record. Both are opened, finalized and
// written while the spec event is handled, so at most one record is open at
// any time. OnRunComplete drains whatever scopes an interrupted sequence
// left behind.
package reporter

import (
	"strings"

	"github.com/ansel1/tallure/allure"
	"github.com/ansel1/tallure/results"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Fixed status details.
const (
	FailedMessage      = "Test failed. See the stack trace for details"
	NoTraceAvailable   = "No trace available"
	SkippedMessage     = "Test skipped"
	DefaultSkipTrace   = "Test execution was skipped by either 'xdescribe' or 'xit'"
	DefaultFramework   = "jasmine"
	diagnosticLineJoin = "\n"
)

// Runtime is the record store the coordinator drives.
type Runtime interface {
	StartScope() allure.ScopeID
	StartTest(draft allure.TestResult, scopes []allure.ScopeID) (allure.TestID, error)
	UpdateTest(id allure.TestID, fn func(*allure.TestResult)) error
	StopTest(id allure.TestID) error
	WriteTest(id allure.TestID) error
	WriteScope(id allure.ScopeID) error
}

// Identity supplies environment and process identity labels.
type Identity interface {
	EnvironmentLabels() []allure.Label
	LanguageLabel() allure.Label
	FrameworkLabel(framework string) allure.Label
	HostLabel() allure.Label
	ThreadLabel() allure.Label
}

// Options are the user-facing knobs of the coordinator.
type Options struct {
	ProjectLanguage  string                         // overrides the language label
	TestFramework    string                         // framework label, DefaultFramework when empty
	PackageLabel     *Affix                         // applied to the package label
	ParentSuiteLabel *Affix                         // applied to the parentSuite label
	SkipTrace        string                         // DefaultSkipTrace when empty
	LinkTemplates    map[string]allure.LinkTemplate // expands bare issue/tms ids
}

// State is where the coordinator is in its per-spec cycle.
type State int

const (
	StateIdle State = iota
	StateScopeOpen
	StateRecordOpen
	StateRecordFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScopeOpen:
		return "scope-open"
	case StateRecordOpen:
		return "record-open"
	case StateRecordFinalized:
		return "record-finalized"
	}
	return "unknown"
}

// Stats counts what the coordinator has persisted.
type Stats struct {
	ScopesWritten  int
	RecordsWritten int
	Passed         int
	Failed         int
	Skipped        int
}

// openRecord only exists between StartTest and WriteTest.
type openRecord struct {
	id     allure.TestID
	status allure.Status
}

// Coordinator drives the record lifecycle for a serial stream of spec
// events. It is not safe for concurrent use.
type Coordinator struct {
	rt       Runtime
	identity Identity
	opts     Options
	logger   *zap.Logger

	scopes  []allure.ScopeID
	current *openRecord
	state   State
	stats   Stats
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// NewCoordinator creates a coordinator writing through rt.
func NewCoordinator(rt Runtime, identity Identity, opts Options, options ...CoordinatorOption) *Coordinator {
	if opts.TestFramework == "" {
		opts.TestFramework = DefaultFramework
	}
	if opts.SkipTrace == "" {
		opts.SkipTrace = DefaultSkipTrace
	}
	c := &Coordinator{
		rt:       rt,
		identity: identity,
		opts:     opts,
		logger:   zap.NewNop(),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return c.state
}

// ScopeDepth returns the number of scopes opened and not yet written.
func (c *Coordinator) ScopeDepth() int {
	return len(c.scopes)
}

// Stats returns counters of persisted scopes and records.
func (c *Coordinator) Stats() Stats {
	return c.stats
}

// OnSpecComplete opens a scope and record for ev unless a record is still
// open, classifies the outcome, then stops and writes the record and pops
// and writes the innermost scope. Runtime errors are returned as is; the
// stream is not expected to continue after one.
func (c *Coordinator) OnSpecComplete(ev results.SpecEvent) error {
	if c.current == nil {
		rec, err := c.open(ev)
		if err != nil {
			return err
		}
		c.current = rec
	}

	if err := c.finalize(c.current, ev); err != nil {
		return err
	}
	return c.flush()
}

// OnRunComplete writes every scope still on the stack, innermost first.
// Records are not touched.
func (c *Coordinator) OnRunComplete() error {
	c.logger.Debug("draining scopes", zap.Int("depth", len(c.scopes)))
	for len(c.scopes) > 0 {
		if err := c.popScope(); err != nil {
			return err
		}
	}
	if c.current == nil {
		c.state = StateIdle
	}
	return nil
}

func (c *Coordinator) open(ev results.SpecEvent) (*openRecord, error) {
	scope := c.rt.StartScope()
	c.scopes = append(c.scopes, scope)
	c.state = StateScopeOpen

	id, err := c.rt.StartTest(c.draft(ev), c.scopeStack())
	if err != nil {
		return nil, errors.Wrapf(err, "starting record for %q", ev.Title)
	}
	c.state = StateRecordOpen
	c.logger.Debug("record opened",
		zap.String("scope", string(scope)),
		zap.String("record", string(id)),
		zap.Strings("suitePath", ev.SuitePath),
		zap.String("title", ev.Title))
	return &openRecord{id: id}, nil
}

// draft builds the initial record. Labels keep a fixed order: environment,
// identity, title metadata, then the structural labels.
func (c *Coordinator) draft(ev results.SpecEvent) allure.TestResult {
	md := ExtractMetadata(ev.Title)
	comp := Compose(ev.SuitePath, ev.Title, c.opts.PackageLabel, c.opts.ParentSuiteLabel)

	labels := make([]allure.Label, 0, 16)
	for _, l := range c.identity.EnvironmentLabels() {
		if l.Value != "" {
			labels = append(labels, l)
		}
	}
	labels = append(labels, c.identityLabels()...)
	labels = append(labels, md.Labels...)
	labels = append(labels,
		allure.Label{Name: allure.LabelBrowser, Value: ev.BrowserName},
		allure.Label{Name: allure.LabelPackage, Value: comp.Package},
		allure.Label{Name: allure.LabelParentSuite, Value: comp.ParentSuite},
	)
	if comp.Suite != "" {
		labels = append(labels, allure.Label{Name: allure.LabelSuite, Value: comp.Suite})
	}
	if comp.SubSuite != "" {
		labels = append(labels, allure.Label{Name: allure.LabelSubSuite, Value: comp.SubSuite})
	}

	draft := allure.TestResult{
		Name:     md.CleanTitle,
		FullName: comp.FullName,
		Stage:    allure.StageRunning,
		Labels:   labels,
		Links:    allure.ApplyLinkTemplates(md.Links, c.opts.LinkTemplates),
	}
	if !ev.Start.IsZero() {
		draft.Start = ev.Start.UnixMilli()
	}
	return draft
}

func (c *Coordinator) identityLabels() []allure.Label {
	language := c.identity.LanguageLabel()
	if c.opts.ProjectLanguage != "" {
		language.Value = c.opts.ProjectLanguage
	}
	return []allure.Label{
		language,
		c.identity.FrameworkLabel(c.opts.TestFramework),
		c.identity.HostLabel(),
		c.identity.ThreadLabel(),
	}
}

func (c *Coordinator) finalize(rec *openRecord, ev results.SpecEvent) error {
	status, details := classify(ev, c.opts.SkipTrace)
	err := c.rt.UpdateTest(rec.id, func(t *allure.TestResult) {
		t.Stage = allure.StageFinished
		t.Status = status
		t.StatusDetails = details
		if !ev.Stop.IsZero() {
			t.Stop = ev.Stop.UnixMilli()
		}
	})
	if err != nil {
		return errors.Wrapf(err, "finalizing record for %q", ev.Title)
	}
	rec.status = status
	c.state = StateRecordFinalized
	return nil
}

// classify maps the runner outcome onto an allure status. Skipped wins
// over success; anything else is a failure.
func classify(ev results.SpecEvent, skipTrace string) (allure.Status, *allure.StatusDetails) {
	switch ev.Outcome() {
	case results.OutcomeSkipped:
		return allure.StatusSkipped, &allure.StatusDetails{Message: SkippedMessage, Trace: skipTrace}
	case results.OutcomePassed:
		return allure.StatusPassed, nil
	default:
		trace := NoTraceAvailable
		if len(ev.DiagnosticLines) > 0 {
			trace = strings.Join(ev.DiagnosticLines, diagnosticLineJoin)
		}
		return allure.StatusFailed, &allure.StatusDetails{Message: FailedMessage, Trace: trace}
	}
}

// flush stops and writes the open record, then pops and writes the top scope.
func (c *Coordinator) flush() error {
	if rec := c.current; rec != nil {
		if err := c.rt.StopTest(rec.id); err != nil {
			return errors.Wrapf(err, "stopping record %s", rec.id)
		}
		if err := c.rt.WriteTest(rec.id); err != nil {
			return errors.Wrapf(err, "writing record %s", rec.id)
		}
		c.current = nil
		c.count(rec.status)
	}

	if len(c.scopes) > 0 {
		if err := c.popScope(); err != nil {
			return err
		}
	}
	c.state = StateIdle
	return nil
}

func (c *Coordinator) popScope() error {
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	if err := c.rt.WriteScope(top); err != nil {
		return errors.Wrapf(err, "writing scope %s", top)
	}
	c.stats.ScopesWritten++
	return nil
}

func (c *Coordinator) count(status allure.Status) {
	c.stats.RecordsWritten++
	switch status {
	case allure.StatusPassed:
		c.stats.Passed++
	case allure.StatusFailed:
		c.stats.Failed++
	case allure.StatusSkipped:
		c.stats.Skipped++
	}
}

func (c *Coordinator) scopeStack() []allure.ScopeID {
	out := make([]allure.ScopeID, len(c.scopes))
	copy(out, c.scopes)
	return out
}
