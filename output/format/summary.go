package format

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ansel1/tallure/results"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// formatDuration formats a duration as HH:MM:SS.mmm.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, milliseconds)
}

// Symbol constants for test results
const (
	SymbolPass = "✓"
	SymbolFail = "✗"
	SymbolSkip = "∅"
)

// Indentation constants
const (
	IndentLevel1 = "  "
	IndentLevel2 = "    "
)

// maxFailureLines bounds the output shown per failed test.
const maxFailureLines = 10

// expandTabs replaces tab characters with spaces.
func expandTabs(s string, tabWidth int) string {
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteRune(r)
			col = 0
		case '\t':
			spaces := tabWidth - (col % tabWidth)
			b.WriteString(strings.Repeat(" ", spaces))
			col += spaces
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// ensureReset appends a terminal reset sequence if the string doesn't end with one.
func ensureReset(s string) string {
	reset := "\x1b[0m"
	if strings.HasSuffix(s, reset) {
		return s
	}
	return s + reset
}

// Report describes what was persisted for the run.
type Report struct {
	ResultsDir string
	Records    int
	Containers int
}

// Summary is what gets printed once the run is over.
type Summary struct {
	Packages     []*results.PackageResult
	Counts       results.Counts
	TotalTime    time.Duration
	Failures     []*results.TestResult
	Skipped      []*results.TestResult
	NonTestLines []string
	Report       Report
}

// ComputeSummary collects the reported tests of run. Only tests that were
// turned into records are listed.
func ComputeSummary(run *results.Run, report Report) *Summary {
	endTime := run.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}

	summary := &Summary{
		Counts:       run.Counts,
		NonTestLines: run.NonTestOutput,
		Report:       report,
	}
	if !run.StartTime.IsZero() {
		summary.TotalTime = endTime.Sub(run.StartTime)
	}

	for _, name := range run.PackageOrder {
		summary.Packages = append(summary.Packages, run.Packages[name])
	}
	for _, key := range run.TestOrder {
		tr := run.TestResults[key]
		if !tr.Emitted {
			continue
		}
		switch tr.Status {
		case results.StatusFailed, results.StatusInterrupted:
			summary.Failures = append(summary.Failures, tr)
		case results.StatusSkipped:
			summary.Skipped = append(summary.Skipped, tr)
		}
	}
	return summary
}

// SummaryFormatter formats a Summary for display.
type SummaryFormatter struct {
	width     int
	useColors bool
	passStyle lipgloss.Style
	failStyle lipgloss.Style
	skipStyle lipgloss.Style
}

// NewSummaryFormatter creates a formatter for the given width (80 if unknown).
// Colors are enabled when stdout is a TTY.
func NewSummaryFormatter(width int) *SummaryFormatter {
	if width <= 0 {
		width = 80
	}
	return &SummaryFormatter{
		width:     width,
		useColors: isatty.IsTerminal(os.Stdout.Fd()),
		passStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // green
		failStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		skipStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
	}
}

// WithColors forces colors on or off.
func (sf *SummaryFormatter) WithColors(on bool) *SummaryFormatter {
	sf.useColors = on
	return sf
}

// Format renders a complete summary.
func (sf *SummaryFormatter) Format(summary *Summary) string {
	var b strings.Builder

	if len(summary.NonTestLines) > 0 {
		b.WriteString(sf.formatNonTest(summary.NonTestLines))
		b.WriteString("\n")
	}
	if len(summary.Failures) > 0 {
		b.WriteString(sf.formatFailures(summary.Failures))
		b.WriteString("\n")
	}
	if len(summary.Skipped) > 0 {
		b.WriteString(sf.formatSkipped(summary.Skipped))
		b.WriteString("\n")
	}
	b.WriteString(sf.formatOverallResults(summary))
	return b.String()
}

func (sf *SummaryFormatter) formatNonTest(lines []string) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader("BUILD OUTPUT"))
	for _, line := range lines {
		b.WriteString(expandTabs(line, 8) + "\n")
	}
	b.WriteString(sf.horizontalLine())
	return b.String()
}

// formatOverallResults formats the overall statistics section.
func (sf *SummaryFormatter) formatOverallResults(summary *Summary) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader("OVERALL RESULTS"))

	c := summary.Counts
	total := c.Total()
	percent := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	passIcon, failIcon, skipIcon := SymbolPass, SymbolFail, SymbolSkip
	if sf.useColors {
		passIcon = sf.passStyle.Render(SymbolPass)
		failIcon = sf.failStyle.Render(SymbolFail)
		skipIcon = sf.skipStyle.Render(SymbolSkip)
	}

	fmt.Fprintf(&b, "Total tests:    %d\n", total)
	fmt.Fprintf(&b, "Passed:         %d %s (%.1f%%)\n", c.Passed, passIcon, percent(c.Passed))
	fmt.Fprintf(&b, "Failed:         %d %s (%.1f%%)\n", c.Failed, failIcon, percent(c.Failed))
	fmt.Fprintf(&b, "Skipped:        %d %s (%.1f%%)\n", c.Skipped, skipIcon, percent(c.Skipped))
	fmt.Fprintf(&b, "Total time:     %s\n", formatDuration(summary.TotalTime))
	fmt.Fprintf(&b, "Packages:       %d\n", len(summary.Packages))
	if summary.Report.ResultsDir != "" {
		fmt.Fprintf(&b, "Allure results: %d results, %d containers in %s\n",
			summary.Report.Records, summary.Report.Containers, summary.Report.ResultsDir)
	}

	b.WriteString(sf.horizontalLine())
	return b.String()
}

// formatFailures lists failed tests grouped by package.
func (sf *SummaryFormatter) formatFailures(failures []*results.TestResult) string {
	return sf.formatGrouped("FAILURES", failures, maxFailureLines)
}

// formatSkipped lists skipped tests grouped by package.
func (sf *SummaryFormatter) formatSkipped(skipped []*results.TestResult) string {
	return sf.formatGrouped("SKIPPED", skipped, 3)
}

func (sf *SummaryFormatter) formatGrouped(header string, tests []*results.TestResult, maxLines int) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader(header))

	byPackage := make(map[string][]*results.TestResult)
	order := make([]string, 0)
	for _, tr := range tests {
		if _, ok := byPackage[tr.Package]; !ok {
			order = append(order, tr.Package)
		}
		byPackage[tr.Package] = append(byPackage[tr.Package], tr)
	}

	for i, pkg := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pkg + "\n")
		for _, tr := range byPackage[pkg] {
			b.WriteString(IndentLevel1 + tr.Name + "\n")
			lines := tr.Output
			if len(lines) > maxLines {
				lines = lines[:maxLines]
			}
			for _, line := range lines {
				b.WriteString(IndentLevel2 + ensureReset(expandTabs(strings.TrimLeft(line, " \t"), 8)) + "\n")
			}
		}
	}

	b.WriteString(sf.horizontalLine())
	return b.String()
}

// horizontalLine returns a separator as wide as the formatter.
func (sf *SummaryFormatter) horizontalLine() string {
	return strings.Repeat("-", sf.width) + "\n"
}

func renderSectionHeader(header string) string {
	return header + "\n" + strings.Repeat("-", len(header)) + "\n"
}
