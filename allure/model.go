// Package allure holds the Allure 2 result model and the runtime that
// persists it into an allure-results directory.
package allure

// Status is the outcome of a test record.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
)

// Stage is the lifecycle phase of a test record, independent of its Status.
type Stage string

const (
	StageScheduled   Stage = "scheduled"
	StageRunning     Stage = "running"
	StageFinished    Stage = "finished"
	StagePending     Stage = "pending"
	StageInterrupted Stage = "interrupted"
)

// Well known label names.
const (
	LabelAllureID    = "ALLURE_ID"
	LabelLanguage    = "language"
	LabelFramework   = "framework"
	LabelHost        = "host"
	LabelThread      = "thread"
	LabelTag         = "tag"
	LabelBrowser     = "browser"
	LabelPackage     = "package"
	LabelParentSuite = "parentSuite"
	LabelSuite       = "suite"
	LabelSubSuite    = "subSuite"
)

// Well known link types.
const (
	LinkIssue = "issue"
	LinkTMS   = "tms"
)

// Label is a name/value pair attached to a test record. Names may repeat.
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Link is an external reference attached to a test record.
type Link struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// StatusDetails carries the explanation for a non-passing status.
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
	Known   bool   `json:"known,omitempty"`
	Muted   bool   `json:"muted,omitempty"`
	Flaky   bool   `json:"flaky,omitempty"`
}

// TestResult is the persisted form of one test execution (<uuid>-result.json).
// Start and Stop are unix milliseconds.
type TestResult struct {
	UUID          string         `json:"uuid"`
	HistoryID     string         `json:"historyId,omitempty"`
	TestCaseID    string         `json:"testCaseId,omitempty"`
	Name          string         `json:"name"`
	FullName      string         `json:"fullName,omitempty"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status,omitempty"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage,omitempty"`
	Start         int64          `json:"start,omitempty"`
	Stop          int64          `json:"stop,omitempty"`
	Labels        []Label        `json:"labels"`
	Links         []Link         `json:"links"`
	Parameters    []Parameter    `json:"parameters"`
	Attachments   []Attachment   `json:"attachments"`
	Steps         []any          `json:"steps"`
}

// Parameter is a named test parameter.
type Parameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Excluded bool   `json:"excluded,omitempty"`
}

// Attachment references a file stored next to the result.
type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type,omitempty"`
}

// TestResultContainer is the persisted form of a scope (<uuid>-container.json).
type TestResultContainer struct {
	UUID     string   `json:"uuid"`
	Name     string   `json:"name,omitempty"`
	Children []string `json:"children"`
	Befores  []any    `json:"befores"`
	Afters   []any    `json:"afters"`
	Start    int64    `json:"start,omitempty"`
	Stop     int64    `json:"stop,omitempty"`
}

// Category classifies results in the rendered report (categories.json).
type Category struct {
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	MessageRegex    string   `json:"messageRegex,omitempty" yaml:"messageRegex,omitempty"`
	TraceRegex      string   `json:"traceRegex,omitempty" yaml:"traceRegex,omitempty"`
	MatchedStatuses []Status `json:"matchedStatuses,omitempty" yaml:"matchedStatuses,omitempty"`
	Flaky           bool     `json:"flaky,omitempty" yaml:"flaky,omitempty"`
}
