package audit

import (
	"context"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

// Record kinds.
const (
	KindAllocation = "allocation"
	KindRemoval    = "removal"
	KindCrew       = "crew"
	KindSweep      = "sweep"
)

// StartRecorder appends a record for every domain event through a durable
// bus subscription, so bursts never lose records. It stops when the context
// is canceled or once the backlog of a closed bus is written; the returned
// channel is closed then.
func StartRecorder(ctx context.Context, bus eventbus.EventBus, store Store, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	log = logger.OrNop(log)
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
				rec, ok := FromEvent(ev)
				if !ok {
					continue
				}
				if err := store.Append(context.WithoutCancel(ctx), rec); err != nil {
					log.Errorf("audit append: %v", err)
				}
			}
		}
	}()
	return done
}

// FromEvent converts a domain event into a record. ok is false for events
// that are not audited.
func FromEvent(ev eventbus.Event) (Record, bool) {
	switch e := ev.(type) {
	case events.AllocationEvent:
		r := Record{
			Timestamp: stamp(e.Time), Kind: KindAllocation, JourneyID: e.JourneyID, Outcome: e.Reason,
			Fields: map[string]any{"operator_id": e.OperatorID, "written": e.Written, "seats": e.Seats, "vehicles": e.Vehicles},
		}
		if e.Err != nil {
			r.Error = e.Err.Error()
		}
		return r, true
	case events.RemovalEvent:
		r := Record{
			Timestamp: stamp(e.Time), Kind: KindRemoval, JourneyID: e.JourneyID, VehicleID: e.VehicleID,
			Outcome: "moved", Fields: map[string]any{"moved": e.Moved},
		}
		switch {
		case e.Conflict:
			r.Outcome = "capacity_conflict"
		case e.Err != nil:
			r.Outcome = "error"
		}
		if e.Err != nil {
			r.Error = e.Err.Error()
		}
		return r, true
	case events.CrewEvent:
		return Record{
			Timestamp: stamp(e.Time), Kind: KindCrew, JourneyID: e.JourneyID, VehicleID: e.VehicleID,
			StaffID: e.StaffID, Outcome: e.Action, Fields: map[string]any{"assignment_id": e.AssignmentID},
		}, true
	case events.SweepEvent:
		return Record{
			Timestamp: time.Now().UTC(), Kind: KindSweep, Outcome: "completed",
			Fields: map[string]any{
				"from": e.From, "to": e.To, "journeys": e.Journeys, "confirmed": e.Confirmed,
				"alerts": e.Alerts, "downgrades": e.Downgrades, "exceptions": e.Exceptions, "failures": e.Failures,
			},
		}, true
	default:
		return Record{}, false
	}
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
