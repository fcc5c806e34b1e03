package sweep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

// guardMinSeats moves the parties of every vehicle booked below its minimum
// onto the smallest unused vehicle of the same operator that is smaller than
// the current one and whose seat range holds the booking, carrying the lead
// and its ledger row along. Without such a vehicle a
// below_min_seats exception is raised for manual handling.
func (s *Sweeper) guardMinSeats(ctx context.Context, tx store.Tx, j model.Journey, now time.Time, jr *journeyResult) error {
	rows, err := tx.Allocations(ctx, j.ID)
	if err != nil {
		return err
	}
	booked := model.SeatsByVehicle(rows)
	if len(booked) == 0 {
		return nil
	}
	ids := make([]string, 0, len(booked))
	for id := range booked {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cands, err := tx.RouteCandidates(ctx, j.RouteID)
	if err != nil {
		return err
	}
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}

	for _, id := range ids {
		v, err := tx.Vehicle(ctx, id)
		if err != nil {
			return err
		}
		seats := booked[id]
		if seats >= v.MinSeats {
			continue
		}
		op, err := tx.Operator(ctx, v.OperatorID)
		if err != nil && !model.IsNotFound(err) {
			return err
		}

		target, ok := downgradeTarget(cands, v, seats, used)
		if !ok {
			open, err := tx.HasOpenException(ctx, j.ID, v.ID, model.ExceptionBelowMinSeats)
			if err != nil {
				return err
			}
			if open {
				continue
			}
			detail := fmt.Sprintf("%d seats booked on %s, minimum %d, no smaller vehicle available", seats, v.ID, v.MinSeats)
			if err := tx.InsertException(ctx, model.Exception{
				ID: s.newID(), JourneyID: j.ID, VehicleID: v.ID, Kind: model.ExceptionBelowMinSeats,
				Detail: detail, CreatedAt: now,
			}); err != nil {
				return err
			}
			jr.exceptions++
			s.log.Warnf("journey %s: %s", j.ID, detail)
			jr.msgs = append(jr.msgs, notify.Message{
				Kind: notify.KindManualIntervention, To: op.Contact, Subject: "Manual intervention required",
				JourneyID: j.ID, VehicleID: v.ID, Data: map[string]any{"detail": detail}, At: now,
			})
			continue
		}

		if err := s.moveVehicle(ctx, tx, j, rows, v.ID, target.ID, now); err != nil {
			return err
		}
		used[target.ID] = true
		delete(used, v.ID)
		jr.downgrades++
		s.log.Infof("journey %s: downgraded %s to %s for %d seats", j.ID, v.ID, target.ID, seats)
		jr.msgs = append(jr.msgs, notify.Message{
			Kind: notify.KindVehicleChanged, To: op.Contact,
			Subject:   fmt.Sprintf("Vehicle %s replaced by %s", v.ID, target.ID),
			JourneyID: j.ID, VehicleID: target.ID,
			Data: map[string]any{"from": v.ID, "to": target.ID, "seats": seats}, At: now,
		})
	}
	return nil
}

func downgradeTarget(cands []model.Vehicle, from model.Vehicle, seats int, used map[string]bool) (model.Vehicle, bool) {
	var fit []model.Vehicle
	for _, c := range cands {
		if c.ID == from.ID || used[c.ID] || c.OperatorID != from.OperatorID || !c.Fits(seats) || c.MaxSeats >= from.MaxSeats {
			continue
		}
		fit = append(fit, c)
	}
	if len(fit) == 0 {
		return model.Vehicle{}, false
	}
	sort.Slice(fit, func(i, k int) bool {
		if fit[i].MaxSeats != fit[k].MaxSeats {
			return fit[i].MaxSeats < fit[k].MaxSeats
		}
		if fit[i].Preferred != fit[k].Preferred {
			return fit[i].Preferred
		}
		return fit[i].ID < fit[k].ID
	})
	return fit[0], true
}

func (s *Sweeper) moveVehicle(ctx context.Context, tx store.Tx, j model.Journey, rows []model.Allocation, from, to string, now time.Time) error {
	var moved []model.Allocation
	for _, r := range rows {
		if r.VehicleID == from {
			r.VehicleID = to
			moved = append(moved, r)
		}
	}
	if err := tx.DeleteVehicleAllocations(ctx, j.ID, from); err != nil {
		return err
	}
	if err := tx.MergeAllocations(ctx, moved); err != nil {
		return err
	}
	leads, err := tx.LiveLeads(ctx, j.ID)
	if err != nil {
		return err
	}
	for _, a := range leads {
		if a.VehicleID != from {
			continue
		}
		a.VehicleID = to
		if err := tx.UpdateCrewAssignment(ctx, a); err != nil {
			return err
		}
		if err := tx.MoveLedger(ctx, j.ID, a.StaffID, from, to); err != nil {
			return err
		}
		if err := tx.AppendCrewEvent(ctx, model.CrewEvent{
			AssignmentID: a.ID, JourneyID: j.ID, VehicleID: to, StaffID: a.StaffID,
			Kind: model.CrewMoved, Reason: "downgraded from " + from, At: now,
		}); err != nil {
			return err
		}
	}
	return nil
}
