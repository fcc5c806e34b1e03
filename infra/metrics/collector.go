package metrics

import (
	"context"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	coremetrics "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

// StartEventCollector records metrics for every event of a durable bus
// subscription. It stops when the context is canceled or the closed bus is
// drained, then closes the returned channel.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.SubscribeDurable()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.AllocationEvent:
		_ = sink.RecordAllocation(coremetrics.AllocationOutcome{
			JourneyID:  e.JourneyID,
			OperatorID: e.OperatorID,
			Reason:     e.Reason,
			Written:    e.Written,
			Seats:      e.Seats,
			Vehicles:   e.Vehicles,
			Time:       e.Time,
		})
	case events.RemovalEvent:
		if r, ok := sink.(coremetrics.RemovalRecorder); ok {
			_ = r.RecordRemoval(coremetrics.RemovalOutcome{
				JourneyID: e.JourneyID,
				VehicleID: e.VehicleID,
				Moved:     e.Moved,
				Conflict:  e.Conflict,
				Failed:    e.Err != nil && !e.Conflict,
				Time:      e.Time,
			})
		}
	case events.CrewEvent:
		if r, ok := sink.(coremetrics.CrewRecorder); ok {
			_ = r.RecordCrew(coremetrics.CrewOutcome{
				Action:    e.Action,
				JourneyID: e.JourneyID,
				VehicleID: e.VehicleID,
				Time:      e.Time,
			})
		}
	case events.SweepEvent:
		if r, ok := sink.(coremetrics.SweepRecorder); ok {
			_ = r.RecordSweep(coremetrics.SweepRun{
				Journeys:   e.Journeys,
				Confirmed:  e.Confirmed,
				Alerts:     e.Alerts,
				Downgrades: e.Downgrades,
				Exceptions: e.Exceptions,
				Failures:   e.Failures,
				Duration:   e.Duration,
				Time:       e.From,
			})
		}
	case events.NotifyEvent:
		if r, ok := sink.(coremetrics.NotifyRecorder); ok {
			_ = r.RecordNotify(coremetrics.NotifyResult{Kind: e.Kind, OK: e.Err == nil})
		}
	}
}
