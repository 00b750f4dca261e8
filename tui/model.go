package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ansel1/tallure/results"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ResultsEventMsg wraps results events for bubbletea. It is sent after the
// reporter has handled the event, so a spec message means its record was
// written.
type ResultsEventMsg results.Event

// DoneMsg signals that reporting is over. Err is the error that stopped it,
// if any.
type DoneMsg struct {
	Err error
}

// maxRecent bounds the list of recently written records.
const maxRecent = 8

// PackageState counts the records written for one package.
type PackageState struct {
	Name    string
	Passed  int
	Failed  int
	Skipped int
	Elapsed time.Duration // sum of spec durations
}

// RecordLine is one entry in the recent records list.
type RecordLine struct {
	Outcome results.Outcome
	Path    string
	Elapsed time.Duration
}

// Model shows the records written so far while the tests run.
//
// Layout, top to bottom: build output, one header per package with its
// counters, the most recent records, a separator and the summary line.
type Model struct {
	ResultsDir string

	Packages     map[string]*PackageState
	PackageOrder []string
	Recent       []RecordLine

	// Non-test output (build errors, compilation errors, etc.)
	NonTestOutput []string

	Passed  int
	Failed  int
	Skipped int

	// Terminal state
	TerminalWidth  int
	TerminalHeight int

	// Styles
	passStyle    lipgloss.Style
	failStyle    lipgloss.Style
	skipStyle    lipgloss.Style
	neutralStyle lipgloss.Style

	// State tracking
	Finished    bool          // reporting is over
	Interrupted bool          // the user quit before reporting was over
	Err         error         // error that stopped reporting
	StartTime   time.Time     // When the TUI started
	Total       time.Duration // Final elapsed time (set when finished)
	spinner     spinner.Model
	now         func() time.Time
}

// NewModel creates a new TUI model for records written to resultsDir.
func NewModel(resultsDir string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Jump

	return &Model{
		ResultsDir:     resultsDir,
		Packages:       make(map[string]*PackageState),
		TerminalWidth:  80, // updated by bubbletea
		TerminalHeight: 24,
		passStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		failStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		skipStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		neutralStyle:   lipgloss.NewStyle(),
		spinner:        s,
		StartTime:      time.Now(),
		now:            time.Now,
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ResultsEventMsg:
		m.handleResultsEvent(results.Event(msg))

	case DoneMsg:
		m.finish()
		m.Err = msg.Err
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.TerminalWidth = msg.Width
		m.TerminalHeight = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.finish()
			m.Interrupted = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) finish() {
	if !m.Finished {
		m.Finished = true
		m.Total = m.now().Sub(m.StartTime)
	}
}

func (m *Model) handleResultsEvent(evt results.Event) {
	switch evt.Type {
	case results.EventNonTestOutput:
		m.NonTestOutput = append(m.NonTestOutput, strings.TrimRight(evt.Output, "\n"))

	case results.EventSpecComplete:
		m.recordSpec(evt.Spec)
	}
}

func (m *Model) recordSpec(spec *results.SpecEvent) {
	pkg, ok := m.Packages[spec.Package]
	if !ok {
		pkg = &PackageState{Name: spec.Package}
		m.Packages[spec.Package] = pkg
		m.PackageOrder = append(m.PackageOrder, spec.Package)
	}

	var elapsed time.Duration
	if !spec.Start.IsZero() && !spec.Stop.IsZero() {
		elapsed = spec.Stop.Sub(spec.Start)
	}
	pkg.Elapsed += elapsed

	outcome := spec.Outcome()
	switch outcome {
	case results.OutcomePassed:
		pkg.Passed++
		m.Passed++
	case results.OutcomeSkipped:
		pkg.Skipped++
		m.Skipped++
	default:
		pkg.Failed++
		m.Failed++
	}

	// the package is already on the header line
	path := spec.SuitePath
	if len(path) > 0 && path[0] == spec.Package {
		path = path[1:]
	}
	m.Recent = append(m.Recent, RecordLine{
		Outcome: outcome,
		Path:    strings.Join(append(append([]string{}, path...), spec.Title), " > "),
		Elapsed: elapsed,
	})
	if len(m.Recent) > maxRecent {
		m.Recent = m.Recent[len(m.Recent)-maxRecent:]
	}
}

// View renders the TUI
func (m *Model) View() string {
	return strings.TrimRight(expandTabs(m.render(), 8), "\n")
}

// HasFailures returns true if any tests failed
func (m *Model) HasFailures() bool {
	return m.Failed > 0
}

// Records returns the number of records shown as written.
func (m *Model) Records() int {
	return m.Passed + m.Failed + m.Skipped
}

// formatElapsedTime formats elapsed time: X.Xs below a minute, X.Xm above.
func formatElapsedTime(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 0.05 {
		return "0.0s"
	}
	if seconds >= 60 {
		return fmt.Sprintf("%.1fm", seconds/60)
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// truncateLine truncates a line to fit within width
func truncateLine(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(line) <= width {
		return line
	}
	return line[:width]
}

func (m *Model) render() string {
	var b strings.Builder

	for _, line := range m.NonTestOutput {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.NonTestOutput) > 0 {
		b.WriteString("\n")
	}

	var wPassed, wFailed, wSkipped int
	for _, pkg := range m.Packages {
		wPassed = max(wPassed, len(fmt.Sprint(pkg.Passed)))
		wFailed = max(wFailed, len(fmt.Sprint(pkg.Failed)))
		wSkipped = max(wSkipped, len(fmt.Sprint(pkg.Skipped)))
	}

	for _, name := range m.PackageOrder {
		m.renderPackageHeader(&b, m.Packages[name], wPassed, wFailed, wSkipped)
	}

	// leave room for the headers, separator and summary line
	room := m.TerminalHeight - len(m.NonTestOutput) - len(m.PackageOrder) - 2
	recent := m.Recent
	if room < len(recent) {
		recent = recent[len(recent)-max(room, 0):]
	}
	for _, rec := range recent {
		m.renderAlignedLine(&b, "  "+m.outcomeSymbol(rec.Outcome)+" "+rec.Path, formatElapsedTime(rec.Elapsed), "  ")
	}

	if len(m.PackageOrder) > 0 {
		b.WriteString(strings.Repeat("-", m.TerminalWidth))
		b.WriteString("\n")
	}

	m.renderSummaryLine(&b)
	return b.String()
}

func (m *Model) outcomeSymbol(o results.Outcome) string {
	switch o {
	case results.OutcomePassed:
		return m.passStyle.Render("✓")
	case results.OutcomeSkipped:
		return m.skipStyle.Render("∅")
	default:
		return m.failStyle.Render("✗")
	}
}

func (m *Model) counter(symbol string, width, n int, style lipgloss.Style) string {
	s := fmt.Sprintf("%s %*d", symbol, width, n)
	if n > 0 {
		return style.Render(s)
	}
	return m.neutralStyle.Render(s)
}

func (m *Model) renderPackageHeader(b *strings.Builder, pkg *PackageState, wPassed, wFailed, wSkipped int) {
	right := fmt.Sprintf("%s  %s  %s  %s",
		m.counter("✓", wPassed, pkg.Passed, m.passStyle),
		m.counter("✗", wFailed, pkg.Failed, m.failStyle),
		m.counter("∅", wSkipped, pkg.Skipped, m.skipStyle),
		formatElapsedTime(pkg.Elapsed))
	m.renderAlignedLine(b, pkg.Name, right, "  ")
}

// getSpinnerPrefix returns the spinner string with appropriate color
func (m *Model) getSpinnerPrefix(failed bool) string {
	spinnerView := m.spinner.View()
	if failed {
		return m.failStyle.Render(spinnerView) + " "
	}
	return m.passStyle.Render(spinnerView) + " "
}

// renderAlignedLine renders a line with left-aligned and right-aligned content
func (m *Model) renderAlignedLine(b *strings.Builder, left, right, prefix string) {
	fullLeft := prefix + left

	if right == "" {
		b.WriteString(fullLeft)
		b.WriteString("\n")
		return
	}

	availableWidth := max(m.TerminalWidth-lipgloss.Width(right)-2, 0)
	leftWidth := lipgloss.Width(fullLeft)

	padding := 0
	if leftWidth >= availableWidth {
		fullLeft = truncateLine(fullLeft, availableWidth)
	} else {
		padding = availableWidth - leftWidth
	}
	b.WriteString(ensureReset(fullLeft))
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString("  ")
	b.WriteString(right)
	b.WriteString("\n")
}

func (m *Model) renderSummaryLine(b *strings.Builder) {
	elapsed := m.Total
	if !m.Finished {
		elapsed = m.now().Sub(m.StartTime)
	}

	status := "RECORDING"
	switch {
	case !m.Finished:
	case m.Err != nil:
		status = "ABORTED"
	case m.HasFailures():
		status = "FAILED"
	default:
		status = "PASSED"
	}
	left := fmt.Sprintf("%s: %d passed, %d failed, %d skipped, %d records in %s",
		status, m.Passed, m.Failed, m.Skipped, m.Records(), m.ResultsDir)

	prefix := "  "
	if !m.Finished {
		prefix = m.getSpinnerPrefix(m.HasFailures())
	}
	m.renderAlignedLine(b, left, formatElapsedTime(elapsed), prefix)
}
