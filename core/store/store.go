// Package store defines the transactional gateway used by the allocation,
// crew and sweep components. Implementations live under infra/store.
package store

import (
	"context"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Gateway opens transactions on the persisted state.
type Gateway interface {
	// InJourney runs fn inside one transaction holding the exclusive lock of
	// the journey. The transaction commits when fn returns nil and rolls back
	// otherwise.
	InJourney(ctx context.Context, journeyID string, fn func(Tx) error) error
	// View runs fn against a read-only snapshot.
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Reader exposes the read side of a transaction.
type Reader interface {
	Journey(ctx context.Context, id string) (model.Journey, error)
	// Journeys returns active journeys departing in [from, to). A zero to
	// leaves the range open.
	Journeys(ctx context.Context, from, to time.Time) ([]model.Journey, error)
	Vehicle(ctx context.Context, id string) (model.Vehicle, error)
	Operator(ctx context.Context, id string) (model.Operator, error)
	// RouteCandidates returns active vehicles with an active candidate row
	// for the route. Preferred is set when either the vehicle or the route
	// row is preferred.
	RouteCandidates(ctx context.Context, routeID string) ([]model.Vehicle, error)
	// Parties returns the paid parties of a route and day.
	Parties(ctx context.Context, routeID, date string) ([]model.Party, error)
	Allocations(ctx context.Context, journeyID string) ([]model.Allocation, error)
	CrewPreferences(ctx context.Context, operatorID, vehicleID string) ([]model.CrewPreference, error)
	OperatorStaff(ctx context.Context, operatorID string) ([]model.Staff, error)
	Staff(ctx context.Context, id string) (model.Staff, error)
	CrewAssignment(ctx context.Context, id string) (model.CrewAssignment, error)
	// LiveLeads returns the lead assignments of a journey.
	LiveLeads(ctx context.Context, journeyID string) ([]model.CrewAssignment, error)
	// LeadsDepartingBetween returns lead assignments on journeys departing in
	// [from, to).
	LeadsDepartingBetween(ctx context.Context, from, to time.Time) ([]model.CrewAssignment, error)
	CrewEvents(ctx context.Context, journeyID, vehicleID string) ([]model.CrewEvent, error)
	// LedgerStats aggregates confirmed wins per staff member for an
	// operator's vehicle.
	LedgerStats(ctx context.Context, operatorID, vehicleID string) (map[string]model.LedgerStats, error)
	HasOpenException(ctx context.Context, journeyID, vehicleID string, kind model.ExceptionKind) (bool, error)
	Exceptions(ctx context.Context, journeyID string) ([]model.Exception, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	// ReplaceAllocations deletes the journey's rows, restricted to vehicles
	// of operatorID when it is not empty, and inserts rows.
	ReplaceAllocations(ctx context.Context, journeyID, operatorID string, rows []model.Allocation) error
	DeleteVehicleAllocations(ctx context.Context, journeyID, vehicleID string) error
	// MergeAllocations upserts rows keyed by journey, vehicle and order. The
	// seat count of an existing row is replaced.
	MergeAllocations(ctx context.Context, rows []model.Allocation) error
	SetJourneyVehicle(ctx context.Context, journeyID, vehicleID string) error

	InsertCrewAssignment(ctx context.Context, a model.CrewAssignment) error
	UpdateCrewAssignment(ctx context.Context, a model.CrewAssignment) error
	DeleteCrewAssignment(ctx context.Context, id string) error
	AppendCrewEvent(ctx context.Context, e model.CrewEvent) error

	AppendLedger(ctx context.Context, e model.LedgerEntry) error
	// ConfirmLedger marks the staff member's unconfirmed rows for the journey
	// vehicle as confirmed. It inserts a confirmed row when none exists.
	ConfirmLedger(ctx context.Context, e model.LedgerEntry, at time.Time) error
	// MoveLedger re-keys the staff member's unconfirmed rows for the journey
	// from one vehicle to another.
	MoveLedger(ctx context.Context, journeyID, staffID, from, to string) error

	InsertException(ctx context.Context, e model.Exception) error
}

// SyncJourneyVehicle points the legacy journey vehicle at the primary vehicle
// of the journey's current allocation.
func SyncJourneyVehicle(ctx context.Context, tx Tx, j model.Journey) error {
	rows, err := tx.Allocations(ctx, j.ID)
	if err != nil {
		return err
	}
	primary := model.PrimaryVehicle(rows)
	if primary == j.VehicleID {
		return nil
	}
	return tx.SetJourneyVehicle(ctx, j.ID, primary)
}
