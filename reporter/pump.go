package reporter

import (
	"github.com/ansel1/tallure/results"
	"go.uber.org/zap"
)

// Consume feeds events to the coordinator until the channel closes. observe,
// if set, sees each event after the coordinator handled it. The first runtime
// error stops reporting; the rest of the channel is drained and discarded so
// the producer can finish.
//
// Consume must be the only caller driving the coordinator.
func (c *Coordinator) Consume(events <-chan results.Event, observe func(results.Event)) error {
	for evt := range events {
		var err error
		switch evt.Type {
		case results.EventSpecComplete:
			err = c.OnSpecComplete(*evt.Spec)
		case results.EventRunComplete:
			err = c.OnRunComplete()
		}
		if observe != nil {
			observe(evt)
		}
		if err != nil {
			c.logger.Error("reporting stopped", zap.Error(err))
			for range events {
			}
			return err
		}
	}
	return nil
}
