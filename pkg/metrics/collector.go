package metrics

import (
	"github.com/amnes-io/amnes/pkg/events"
	"github.com/amnes-io/amnes/pkg/types"
)

// Collector updates the metric set from the event stream so the rest of
// the codebase never touches prometheus directly.
type Collector struct {
	broker *events.Broker
	stopCh chan struct{}
}

// NewCollector creates a collector over the given broker.
func NewCollector(broker *events.Broker) *Collector {
	return &Collector{
		broker: broker,
		stopCh: make(chan struct{}),
	}
}

// Start subscribes to the broker and consumes events until Stop.
func (c *Collector) Start() {
	sub := c.broker.Subscribe()
	go func() {
		for {
			select {
			case event, ok := <-sub:
				if !ok {
					return
				}
				c.record(event)
			case <-c.stopCh:
				c.broker.Unsubscribe(sub)
				return
			}
		}
	}()
}

// Stop ends event consumption.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) record(event *events.Event) {
	switch event.Type {
	case events.EventProjectImported:
		ProjectsImported.Inc()
	case events.EventProjectFinished:
		ProjectRuns.WithLabelValues("finished").Inc()
	case events.EventProjectAborted:
		ProjectRuns.WithLabelValues("aborted").Inc()
	case events.EventExperimentStarted:
		RepetitionRunning.Set(1)
	case events.EventExperimentFinished:
		RepetitionRunning.Set(0)
		RepetitionsTotal.WithLabelValues(string(types.StateFinished)).Inc()
	case events.EventExperimentFailed:
		RepetitionRunning.Set(0)
		RepetitionsTotal.WithLabelValues(string(types.StateFailed)).Inc()
	case events.EventExperimentAborted:
		RepetitionRunning.Set(0)
		RepetitionsTotal.WithLabelValues(string(types.StateAborted)).Inc()
	case events.EventTaskDispatched:
		TasksDispatched.Inc()
	case events.EventTaskFailed:
		TasksFailed.Inc()
	case events.EventFileReceived:
		FilesReceived.Inc()
	}
}
