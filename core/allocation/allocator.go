package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/workpool"
)

// Finalization reasons reported per journey.
const (
	ReasonLocked          = "locked"
	ReasonInactive        = "inactive"
	ReasonOutOfScope      = "out_of_scope"
	ReasonCleared         = "cleared"
	ReasonUnchanged       = "unchanged"
	ReasonWritten         = "written"
	ReasonFrozen          = "frozen"
	ReasonFrozenShortfall = "frozen_shortfall"
	ReasonCapacity        = "capacity_exhausted"
	ReasonError           = "error"
)

// Outcome describes the result of finalizing one journey.
type Outcome struct {
	JourneyID string `json:"journey_id"`
	Locked    bool   `json:"locked"`
	// Written is the number of allocation rows written, 0 when unchanged. A
	// clear counts the rows removed.
	Written int    `json:"written"`
	Reason  string `json:"reason"`
	// Shortfall is the number of paid seats left without a vehicle in the
	// freeze window.
	Shortfall int    `json:"shortfall,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FinalizeRequest selects the journeys to finalize. JourneyID takes
// precedence over OperatorID, which takes precedence over All. OperatorID
// also scopes a single-journey run to that operator's vehicles.
type FinalizeRequest struct {
	JourneyID  string `json:"journey_id,omitempty"`
	OperatorID string `json:"operator_id,omitempty"`
	All        bool   `json:"all,omitempty"`
}

// FinalizeResult aggregates per-journey outcomes.
type FinalizeResult struct {
	Changed int       `json:"changed"`
	Details []Outcome `json:"details"`
}

// Config tunes the allocator.
type Config struct {
	LockHours   int `json:"lock_hours"`
	FreezeHours int `json:"freeze_hours"`
	// Workers bounds concurrent journeys in batch runs.
	Workers int `json:"workers"`
}

// SetDefaults applies the T-24/T-72 windows.
func (c *Config) SetDefaults() {
	if c.LockHours == 0 {
		c.LockHours = 24
	}
	if c.FreezeHours == 0 {
		c.FreezeHours = 72
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks window ordering.
func (c Config) Validate() error {
	if c.LockHours < 0 || c.FreezeHours < c.LockHours {
		return fmt.Errorf("allocation: freeze_hours (%d) must be >= lock_hours (%d) >= 0", c.FreezeHours, c.LockHours)
	}
	return nil
}

// Policy returns the window policy described by the config.
func (c Config) Policy() Policy {
	return Policy{Lock: time.Duration(c.LockHours) * time.Hour, Freeze: time.Duration(c.FreezeHours) * time.Hour}
}

// Allocator applies the window policy and the packer to journeys and commits
// the resulting allocation through the store gateway.
type Allocator struct {
	store   store.Gateway
	policy  Policy
	workers int
	bus     eventbus.EventBus
	log     logger.Logger
}

// NewAllocator creates an Allocator. bus may be nil.
func NewAllocator(gw store.Gateway, cfg Config, bus eventbus.EventBus, log logger.Logger) *Allocator {
	cfg.SetDefaults()
	return &Allocator{store: gw, policy: cfg.Policy(), workers: cfg.Workers, bus: bus, log: logger.OrNop(log)}
}

// Policy returns the window policy in use.
func (a *Allocator) Policy() Policy { return a.policy }

// FinalizeAllocations finalizes the journeys selected by req at time now.
func (a *Allocator) FinalizeAllocations(ctx context.Context, req FinalizeRequest, now time.Time) (FinalizeResult, error) {
	if req.JourneyID != "" {
		out, err := a.Finalize(ctx, req.JourneyID, req.OperatorID, now)
		if err != nil {
			return FinalizeResult{}, err
		}
		res := FinalizeResult{Details: []Outcome{out}}
		if out.Written > 0 {
			res.Changed = 1
		}
		return res, nil
	}
	if req.OperatorID == "" && !req.All {
		return FinalizeResult{}, fmt.Errorf("%w: journey_id, operator_id or all is required", model.ErrInvalidRequest)
	}

	var journeys []model.Journey
	err := a.store.View(ctx, func(tx store.Tx) error {
		var err error
		journeys, err = tx.Journeys(ctx, now, time.Time{})
		return err
	})
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("list journeys: %w", err)
	}

	details := make([]Outcome, len(journeys))
	started, err := workpool.ForEach(ctx, len(journeys), a.workers, func(ctx context.Context, i int) {
		out, ferr := a.Finalize(ctx, journeys[i].ID, req.OperatorID, now)
		if ferr != nil {
			out = Outcome{JourneyID: journeys[i].ID, Reason: ReasonError, Error: ferr.Error()}
			if model.IsCapacity(ferr) {
				out.Reason = ReasonCapacity
			} else {
				a.log.Errorf("finalize journey %s: %v", journeys[i].ID, ferr)
			}
		}
		details[i] = out
	})
	res := FinalizeResult{Details: details[:started]}
	for _, d := range res.Details {
		if d.Written > 0 {
			res.Changed++
		}
	}
	return res, err
}

// Finalize recomputes the allocation of one journey. operatorID restricts the
// run to that operator's vehicles and rows when not empty.
func (a *Allocator) Finalize(ctx context.Context, journeyID, operatorID string, now time.Time) (Outcome, error) {
	out := Outcome{JourneyID: journeyID}
	var seats, vehicles int
	err := a.store.InJourney(ctx, journeyID, func(tx store.Tx) error {
		j, err := tx.Journey(ctx, journeyID)
		if err != nil {
			return err
		}
		if !j.Active {
			out.Reason = ReasonInactive
			return nil
		}
		win := a.policy.Classify(j.Departure, now)
		if win == WindowLocked {
			out.Locked = true
			out.Reason = ReasonLocked
			return nil
		}

		cands, err := tx.RouteCandidates(ctx, j.RouteID)
		if err != nil {
			return err
		}
		current, err := tx.Allocations(ctx, j.ID)
		if err != nil {
			return err
		}
		parties, err := tx.Parties(ctx, j.RouteID, j.Date())
		if err != nil {
			return err
		}

		scoped := cands
		inScope, outScope := current, []model.Allocation(nil)
		if operatorID != "" {
			scoped = scoped[:0:0]
			for _, v := range cands {
				if v.OperatorID == operatorID {
					scoped = append(scoped, v)
				}
			}
			inScope, outScope, err = splitByOperator(ctx, tx, current, operatorID)
			if err != nil {
				return err
			}
			if len(scoped) == 0 && len(inScope) == 0 {
				out.Reason = ReasonOutOfScope
				return nil
			}
		}
		demand := excludeHoused(parties, outScope)

		if Demand(demand) == 0 {
			if len(inScope) == 0 {
				out.Reason = ReasonUnchanged
				return nil
			}
			if err := tx.ReplaceAllocations(ctx, j.ID, operatorID, nil); err != nil {
				return err
			}
			out.Written = len(inScope)
			out.Reason = ReasonCleared
			return store.SyncJourneyVehicle(ctx, tx, j)
		}

		if win == WindowFreeze && len(inScope) > 0 {
			out.Reason = ReasonFrozen
			if short := Demand(excludeHoused(demand, inScope)); short > 0 {
				out.Reason = ReasonFrozenShortfall
				out.Shortfall = short
				a.log.Warnf("journey %s frozen with %d unhoused seats", j.ID, short)
			}
			return nil
		}

		plan, err := Pack(demand, candidatesOf(scoped))
		if err != nil {
			return err
		}
		rows := plan.Rows(j.ID)
		if sameRows(rows, inScope) {
			out.Reason = ReasonUnchanged
			return nil
		}
		if err := tx.ReplaceAllocations(ctx, j.ID, operatorID, rows); err != nil {
			return err
		}
		if err := store.SyncJourneyVehicle(ctx, tx, j); err != nil {
			return err
		}
		out.Written = len(rows)
		out.Reason = ReasonWritten
		seats = Demand(demand)
		vehicles = len(model.SeatsByVehicle(rows))
		a.log.Infof("journey %s allocated %d seats on %d vehicles (%s window)", j.ID, seats, vehicles, win)
		return nil
	})

	ev := events.AllocationEvent{
		JourneyID:  journeyID,
		OperatorID: operatorID,
		Reason:     out.Reason,
		Written:    out.Written,
		Seats:      seats,
		Vehicles:   vehicles,
		Time:       now,
	}
	if err != nil {
		ev.Err = err
		ev.Reason = ReasonError
		var capErr *model.CapacityError
		if errors.As(err, &capErr) {
			ev.Reason = ReasonCapacity
		}
		a.publish(ev)
		return Outcome{}, err
	}
	a.publish(ev)
	return out, nil
}

func (a *Allocator) publish(ev any) {
	if a.bus != nil {
		a.bus.Publish(ev)
	}
}

func candidatesOf(vs []model.Vehicle) []Candidate {
	out := make([]Candidate, len(vs))
	for i, v := range vs {
		out[i] = Candidate{VehicleID: v.ID, Capacity: v.MaxSeats, Preferred: v.Preferred}
	}
	return out
}

func splitByOperator(ctx context.Context, tx store.Tx, rows []model.Allocation, operatorID string) (in, out []model.Allocation, err error) {
	owner := make(map[string]string)
	for _, r := range rows {
		op, ok := owner[r.VehicleID]
		if !ok {
			v, err := tx.Vehicle(ctx, r.VehicleID)
			if err != nil {
				return nil, nil, err
			}
			op = v.OperatorID
			owner[r.VehicleID] = op
		}
		if op == operatorID {
			in = append(in, r)
		} else {
			out = append(out, r)
		}
	}
	return in, out, nil
}

// excludeHoused drops parties that already have a row in housed.
func excludeHoused(parties []model.Party, housed []model.Allocation) []model.Party {
	if len(housed) == 0 {
		return parties
	}
	orders := make(map[string]bool, len(housed))
	for _, r := range housed {
		orders[r.OrderID] = true
	}
	var out []model.Party
	for _, p := range parties {
		if !orders[p.OrderID] {
			out = append(out, p)
		}
	}
	return out
}

func sameRows(next, current []model.Allocation) bool {
	if len(next) != len(current) {
		return false
	}
	cur := append([]model.Allocation(nil), current...)
	SortRows(cur)
	for i := range next {
		if next[i] != cur[i] {
			return false
		}
	}
	return true
}
