package allocation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

// Move records one party re-housed by a vehicle removal.
type Move struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Seats   int    `json:"seats"`
}

// RemovalResult is returned by RemoveVehicle.
type RemovalResult struct {
	JourneyID  string             `json:"journey_id"`
	VehicleID  string             `json:"vehicle_id"`
	Moves      []Move             `json:"moves"`
	Allocation []model.Allocation `json:"allocation"`
	Summary    string             `json:"summary"`
}

// RemoveVehicle pulls a vehicle from a journey and re-packs its parties onto
// the operator's other active route vehicles. The plan is computed before any
// write: when the parties do not fit the call fails with a capacity conflict
// and nothing changes. It applies whatever the time to departure.
func (a *Allocator) RemoveVehicle(ctx context.Context, journeyID, vehicleID string, now time.Time) (RemovalResult, error) {
	res := RemovalResult{JourneyID: journeyID, VehicleID: vehicleID}
	err := a.store.InJourney(ctx, journeyID, func(tx store.Tx) error {
		j, err := tx.Journey(ctx, journeyID)
		if err != nil {
			return err
		}
		removed, err := tx.Vehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		current, err := tx.Allocations(ctx, j.ID)
		if err != nil {
			return err
		}

		var parties []model.Party
		for _, r := range current {
			if r.VehicleID == vehicleID {
				parties = append(parties, model.Party{OrderID: r.OrderID, Seats: r.Seats})
			}
		}

		if len(parties) > 0 {
			cands, err := tx.RouteCandidates(ctx, j.RouteID)
			if err != nil {
				return err
			}
			used := model.SeatsByVehicle(current)
			var free []Candidate
			for _, v := range cands {
				if v.ID == vehicleID || v.OperatorID != removed.OperatorID {
					continue
				}
				if left := v.MaxSeats - used[v.ID]; left > 0 {
					free = append(free, Candidate{VehicleID: v.ID, Capacity: left, Preferred: v.Preferred})
				}
			}
			plan, err := PackOnto(parties, free)
			if err != nil {
				var capErr *model.CapacityError
				if errors.As(err, &capErr) {
					capErr.Err = model.ErrCapacityConflict
				}
				return err
			}
			for _, p := range plan.Placements {
				res.Moves = append(res.Moves, Move{OrderID: p.OrderID, From: vehicleID, To: p.VehicleID, Seats: p.Seats})
			}
			if err := tx.DeleteVehicleAllocations(ctx, j.ID, vehicleID); err != nil {
				return err
			}
			if err := tx.MergeAllocations(ctx, plan.Rows(j.ID)); err != nil {
				return err
			}
		} else if err := tx.DeleteVehicleAllocations(ctx, j.ID, vehicleID); err != nil {
			return err
		}

		if err := store.SyncJourneyVehicle(ctx, tx, j); err != nil {
			return err
		}
		res.Allocation, err = tx.Allocations(ctx, j.ID)
		return err
	})
	a.publish(events.RemovalEvent{
		JourneyID: journeyID,
		VehicleID: vehicleID,
		Moved:     len(res.Moves),
		Conflict:  model.IsCapacity(err),
		Err:       err,
		Time:      now,
	})
	if err != nil {
		return RemovalResult{}, err
	}
	res.Summary = summarize(vehicleID, res.Moves)
	a.log.Infof("journey %s: %s", journeyID, res.Summary)
	return res, nil
}

func summarize(vehicleID string, moves []Move) string {
	if len(moves) == 0 {
		return fmt.Sprintf("removed %s; no parties to move", vehicleID)
	}
	sorted := append([]Move(nil), moves...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderID < sorted[j].OrderID })
	seats := 0
	parts := make([]string, len(sorted))
	for i, m := range sorted {
		seats += m.Seats
		parts[i] = fmt.Sprintf("%s (%d) to %s", m.OrderID, m.Seats, m.To)
	}
	return fmt.Sprintf("removed %s; moved %d parties, %d seats: %s", vehicleID, len(moves), seats, strings.Join(parts, ", "))
}
