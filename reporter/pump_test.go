package reporter

import (
	"errors"
	"testing"

	"github.com/ansel1/tallure/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(evts ...results.Event) <-chan results.Event {
	ch := make(chan results.Event, len(evts))
	for _, e := range evts {
		ch <- e
	}
	close(ch)
	return ch
}

func TestConsume(t *testing.T) {
	c, rt := newCoordinator(Options{})

	var seen []results.EventType
	err := c.Consume(feed(
		results.NewRawOutputEvent([]byte("hello")),
		results.NewSpecCompleteEvent(passingSpec()),
		results.NewSpecCompleteEvent(passingSpec()),
		results.NewRunCompleteEvent(),
	), func(evt results.Event) {
		seen = append(seen, evt.Type)
	})
	require.NoError(t, err)

	assert.Equal(t, []results.EventType{
		results.EventRawOutput,
		results.EventSpecComplete,
		results.EventSpecComplete,
		results.EventRunComplete,
	}, seen)
	assert.Len(t, rt.written, 2)
	assert.Equal(t, 2, c.Stats().RecordsWritten)
	assert.Equal(t, StateIdle, c.State())
}

func TestConsume_StopsOnError(t *testing.T) {
	c, rt := newCoordinator(Options{})
	boom := errors.New("disk full")
	rt.failOn["writeTest"] = boom

	var observed int
	err := c.Consume(feed(
		results.NewSpecCompleteEvent(passingSpec()),
		results.NewSpecCompleteEvent(passingSpec()),
		results.NewRunCompleteEvent(),
	), func(results.Event) {
		observed++
	})
	require.ErrorIs(t, err, boom)

	// the failing event is still observed, the drained ones are not
	assert.Equal(t, 1, observed)
	assert.Equal(t, 1, rt.count("startTest"))
	assert.Empty(t, rt.written)
}

func TestConsume_NilObserver(t *testing.T) {
	c, _ := newCoordinator(Options{})
	require.NoError(t, c.Consume(feed(
		results.NewSpecCompleteEvent(passingSpec()),
		results.NewRunCompleteEvent(),
	), nil))
	assert.Equal(t, 1, c.Stats().Passed)
}
