package tui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ansel1/tallure/results"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 11, 1, 15, 0, 0, 0, time.UTC)

func specMsg(pkg, title string, outcome results.Outcome, parents ...string) ResultsEventMsg {
	return ResultsEventMsg(results.NewSpecCompleteEvent(results.SpecEvent{
		Package:   pkg,
		Title:     title,
		SuitePath: append([]string{pkg}, parents...),
		Success:   outcome == results.OutcomePassed,
		Skipped:   outcome == results.OutcomeSkipped,
		Start:     t0,
		Stop:      t0.Add(1500 * time.Millisecond),
	}))
}

func newTestModel() *Model {
	m := NewModel("allure-results")
	m.StartTime = t0
	m.now = func() time.Time { return t0.Add(3 * time.Second) }
	return m
}

func TestModel_CountsRecords(t *testing.T) {
	m := newTestModel()

	m.Update(specMsg("example.com/a", "works", results.OutcomePassed, "TestParent"))
	m.Update(specMsg("example.com/a", "breaks", results.OutcomeFailed, "TestParent"))
	m.Update(specMsg("example.com/b", "TestLater", results.OutcomeSkipped))

	assert.Equal(t, 1, m.Passed)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, 1, m.Skipped)
	assert.Equal(t, 3, m.Records())
	assert.True(t, m.HasFailures())
	assert.Equal(t, []string{"example.com/a", "example.com/b"}, m.PackageOrder)
	assert.Equal(t, 3*time.Second, m.Packages["example.com/a"].Elapsed)

	view := m.View()
	assert.Contains(t, view, "example.com/a")
	assert.Contains(t, view, "✓ TestParent > works")
	assert.Contains(t, view, "✗ TestParent > breaks")
	assert.Contains(t, view, "∅ TestLater")
	assert.Contains(t, view, "RECORDING: 1 passed, 1 failed, 1 skipped, 3 records in allure-results")
}

func TestModel_RecentIsBounded(t *testing.T) {
	m := newTestModel()
	for i := range maxRecent + 3 {
		m.Update(specMsg("example.com/a", fmt.Sprintf("case %d", i), results.OutcomePassed))
	}

	require.Len(t, m.Recent, maxRecent)
	assert.Equal(t, "case 3", m.Recent[0].Path)
	assert.NotContains(t, m.View(), "case 2")
}

func TestModel_RecentFitsTerminal(t *testing.T) {
	m := newTestModel()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 5})
	for i := range 5 {
		m.Update(specMsg("example.com/a", fmt.Sprintf("case %d", i), results.OutcomePassed))
	}

	// one header, separator and summary leave two lines
	view := m.View()
	assert.NotContains(t, view, "case 2")
	assert.Contains(t, view, "case 3")
	assert.Contains(t, view, "case 4")
}

func TestModel_NonTestOutput(t *testing.T) {
	m := newTestModel()
	m.Update(ResultsEventMsg(results.NewNonTestOutputEvent("# example.com/a\n")))

	assert.Equal(t, []string{"# example.com/a"}, m.NonTestOutput)
	assert.Contains(t, m.View(), "  # example.com/a\n")
}

func TestModel_Done(t *testing.T) {
	m := newTestModel()
	m.Update(specMsg("example.com/a", "works", results.OutcomePassed))

	_, cmd := m.Update(DoneMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Finished)
	assert.False(t, m.Interrupted)
	assert.Equal(t, 3*time.Second, m.Total)
	assert.Contains(t, m.View(), "PASSED: 1 passed, 0 failed, 0 skipped, 1 records in allure-results")
}

func TestModel_DoneWithFailures(t *testing.T) {
	m := newTestModel()
	m.Update(specMsg("example.com/a", "breaks", results.OutcomeFailed))
	m.Update(DoneMsg{})

	assert.Contains(t, m.View(), "FAILED: 0 passed, 1 failed, 0 skipped, 1 records in allure-results")
}

func TestModel_DoneWithError(t *testing.T) {
	m := newTestModel()
	m.Update(DoneMsg{Err: errors.New("disk full")})

	assert.EqualError(t, m.Err, "disk full")
	assert.Contains(t, m.View(), "ABORTED:")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.Interrupted)
	assert.True(t, m.Finished)
}

func TestFormatElapsedTime(t *testing.T) {
	assert.Equal(t, "0.0s", formatElapsedTime(10*time.Millisecond))
	assert.Equal(t, "1.5s", formatElapsedTime(1500*time.Millisecond))
	assert.Equal(t, "1.5m", formatElapsedTime(90*time.Second))
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "", truncateLine("abc", 0))
	assert.Equal(t, "ab", truncateLine("abc", 2))
	assert.Equal(t, "abc", truncateLine("abc", 5))
}

func TestEnsureReset(t *testing.T) {
	assert.Equal(t, "", ensureReset(""))
	assert.Equal(t, "x\033[0m", ensureReset("x"))
	assert.Equal(t, "x\033[0m", ensureReset("x\033[0m"))
}
