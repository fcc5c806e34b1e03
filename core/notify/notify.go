// Package notify defines the outbound notification contract. Delivery is best
// effort: failures are logged and counted, never returned to the operation
// that triggered them.
package notify

import (
	"context"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

// Message kinds.
const (
	KindCrewAssigned       = "crew_assigned"
	KindCaptainUnassigned  = "captain_unassigned"
	KindManifest           = "manifest"
	KindReminder           = "reminder"
	KindManualIntervention = "manual_intervention"
	KindVehicleChanged     = "vehicle_changed"
)

// Message is one notification handed to a Notifier.
type Message struct {
	Kind      string         `json:"kind"`
	To        string         `json:"to"`
	Subject   string         `json:"subject"`
	JourneyID string         `json:"journey_id,omitempty"`
	VehicleID string         `json:"vehicle_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

// Notifier delivers messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }

// Deliver sends msgs one by one and returns the number of failures. Failures
// are logged as warnings and published as NotifyEvent when bus is not nil.
func Deliver(ctx context.Context, n Notifier, log logger.Logger, bus eventbus.EventBus, msgs []Message) int {
	if n == nil {
		return 0
	}
	log = logger.OrNop(log)
	failed := 0
	for _, m := range msgs {
		err := n.Notify(ctx, m)
		if err != nil {
			failed++
			log.Warnf("notify %s to %s for journey %s: %v", m.Kind, m.To, m.JourneyID, err)
		}
		if bus != nil {
			bus.Publish(events.NotifyEvent{Kind: m.Kind, JourneyID: m.JourneyID, Err: err})
		}
	}
	return failed
}
