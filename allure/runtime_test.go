package allure

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(w Writer) *Runtime {
	n := 0
	clock := time.UnixMilli(1_700_000_000_000)
	return NewRuntime(w,
		WithUUIDGenerator(func() string {
			n++
			return fmt.Sprintf("uuid-%d", n)
		}),
		WithClock(func() time.Time { return clock }),
	)
}

func TestRuntime_Lifecycle(t *testing.T) {
	w := NewMemoryWriter()
	rt := newTestRuntime(w)

	scope := rt.StartScope()
	id, err := rt.StartTest(TestResult{Name: "should pass", FullName: "My Suite > should pass", Stage: StageRunning}, []ScopeID{scope})
	require.NoError(t, err)
	assert.Equal(t, ScopeID("uuid-1"), scope)
	assert.Equal(t, TestID("uuid-2"), id)

	require.NoError(t, rt.UpdateTest(id, func(r *TestResult) {
		r.Stage = StageFinished
		r.Status = StatusPassed
	}))
	require.NoError(t, rt.StopTest(id))
	require.NoError(t, rt.WriteTest(id))
	require.NoError(t, rt.WriteScope(scope))

	require.Len(t, w.Results, 1)
	res := w.Results[0]
	assert.Equal(t, "uuid-2", res.UUID)
	assert.Equal(t, StatusPassed, res.Status)
	assert.Equal(t, StageFinished, res.Stage)
	assert.Equal(t, int64(1_700_000_000_000), res.Start)
	assert.Equal(t, int64(1_700_000_000_000), res.Stop)
	assert.Equal(t, md5Hex("My Suite > should pass"), res.TestCaseID)
	assert.NotEmpty(t, res.HistoryID)
	assert.NotNil(t, res.Labels)
	assert.NotNil(t, res.Links)

	require.Len(t, w.Containers, 1)
	assert.Equal(t, []string{"uuid-2"}, w.Containers[0].Children)
	assert.Zero(t, rt.OpenScopes())
	assert.Zero(t, rt.OpenTests())
}

func TestRuntime_KeepsDraftTimestamps(t *testing.T) {
	w := NewMemoryWriter()
	rt := newTestRuntime(w)

	id, err := rt.StartTest(TestResult{Name: "x", Start: 10, Stop: 20}, nil)
	require.NoError(t, err)
	require.NoError(t, rt.StopTest(id))
	require.NoError(t, rt.WriteTest(id))

	assert.Equal(t, int64(10), w.Results[0].Start)
	assert.Equal(t, int64(20), w.Results[0].Stop)
}

func TestRuntime_ChildOfEveryScope(t *testing.T) {
	w := NewMemoryWriter()
	rt := newTestRuntime(w)

	outer := rt.StartScope()
	inner := rt.StartScope()
	id, err := rt.StartTest(TestResult{Name: "x"}, []ScopeID{outer, inner})
	require.NoError(t, err)
	require.NoError(t, rt.WriteTest(id))
	require.NoError(t, rt.WriteScope(inner))
	require.NoError(t, rt.WriteScope(outer))

	require.Len(t, w.Containers, 2)
	assert.Equal(t, []string{string(id)}, w.Containers[0].Children)
	assert.Equal(t, []string{string(id)}, w.Containers[1].Children)
}

func TestRuntime_UnknownHandles(t *testing.T) {
	rt := newTestRuntime(NewMemoryWriter())

	_, err := rt.StartTest(TestResult{}, []ScopeID{"nope"})
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, rt.UpdateTest("nope", func(*TestResult) {}), ErrUnknownHandle)
	assert.ErrorIs(t, rt.StopTest("nope"), ErrUnknownHandle)
	assert.ErrorIs(t, rt.WriteTest("nope"), ErrUnknownHandle)
	assert.ErrorIs(t, rt.WriteScope("nope"), ErrUnknownHandle)
}

type failingWriter struct{ MemoryWriter }

var errDiskFull = errors.New("disk full")

func (f *failingWriter) WriteResult(*TestResult) error { return errDiskFull }

func TestRuntime_WriterErrorPropagates(t *testing.T) {
	rt := newTestRuntime(&failingWriter{})

	id, err := rt.StartTest(TestResult{Name: "x"}, nil)
	require.NoError(t, err)
	err = rt.WriteTest(id)
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorContains(t, err, "writing test uuid-1")
}

// flakyWriter fails the first write of each kind.
type flakyWriter struct {
	MemoryWriter
	resultFailed, containerFailed bool
}

func (f *flakyWriter) WriteResult(r *TestResult) error {
	if !f.resultFailed {
		f.resultFailed = true
		return errDiskFull
	}
	return f.MemoryWriter.WriteResult(r)
}

func (f *flakyWriter) WriteContainer(c *TestResultContainer) error {
	if !f.containerFailed {
		f.containerFailed = true
		return errDiskFull
	}
	return f.MemoryWriter.WriteContainer(c)
}

func TestRuntime_FailedWriteKeepsHandles(t *testing.T) {
	w := &flakyWriter{}
	rt := newTestRuntime(w)

	scope := rt.StartScope()
	id, err := rt.StartTest(TestResult{Name: "x"}, []ScopeID{scope})
	require.NoError(t, err)

	require.ErrorIs(t, rt.WriteTest(id), errDiskFull)
	assert.Equal(t, 1, rt.OpenTests())
	require.NoError(t, rt.UpdateTest(id, func(r *TestResult) { r.Status = StatusBroken }))
	require.NoError(t, rt.WriteTest(id))
	assert.Zero(t, rt.OpenTests())

	require.ErrorIs(t, rt.WriteScope(scope), errDiskFull)
	assert.Equal(t, 1, rt.OpenScopes())
	require.NoError(t, rt.WriteScope(scope))
	assert.Zero(t, rt.OpenScopes())

	require.Len(t, w.Results, 1)
	assert.Equal(t, StatusBroken, w.Results[0].Status)
	require.Len(t, w.Containers, 1)
	assert.Equal(t, []string{"uuid-2"}, w.Containers[0].Children)
}
