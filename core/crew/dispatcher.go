// Package crew selects and manages the lead crew member of journey vehicles.
package crew

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

// Config tunes candidate eligibility.
type Config struct {
	// StrictOverlap excludes staff leading any journey that departs within
	// OverlapMinutes of the target journey.
	StrictOverlap  bool `json:"strict_overlap"`
	OverlapMinutes int  `json:"overlap_minutes"`
}

// SetDefaults applies a three hour overlap window.
func (c *Config) SetDefaults() {
	if c.OverlapMinutes == 0 {
		c.OverlapMinutes = 180
	}
}

func (c Config) overlap() time.Duration { return time.Duration(c.OverlapMinutes) * time.Minute }

// AssignResult is returned by AssignCrew.
type AssignResult struct {
	Assignment model.CrewAssignment `json:"assignment"`
	// Existing is set when a live lead was already in place.
	Existing bool `json:"existing"`
}

// DeclineResult is returned by DeclineCrewAssignment.
type DeclineResult struct {
	Reassigned bool                  `json:"reassigned"`
	Assignment *model.CrewAssignment `json:"assignment,omitempty"`
	Detail     string                `json:"detail"`
}

// Dispatcher assigns lead crew and handles declines. Every mutation runs in
// the journey transaction of the store gateway; notifications are sent after
// commit.
type Dispatcher struct {
	store    store.Gateway
	notifier notify.Notifier
	bus      eventbus.EventBus
	log      logger.Logger
	cfg      Config
	newID    func() string
}

// NewDispatcher creates a Dispatcher. notifier and bus may be nil.
func NewDispatcher(gw store.Gateway, notifier notify.Notifier, cfg Config, bus eventbus.EventBus, log logger.Logger) *Dispatcher {
	cfg.SetDefaults()
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{store: gw, notifier: notifier, bus: bus, log: logger.OrNop(log), cfg: cfg, newID: uuid.NewString}
}

// AssignCrew ensures the journey vehicle has a lead. An existing live lead is
// returned unchanged. When nobody is eligible an exception row is committed,
// the operator is alerted and the error wraps model.ErrNoEligibleCandidate.
func (d *Dispatcher) AssignCrew(ctx context.Context, journeyID, vehicleID, operatorID string, now time.Time) (AssignResult, error) {
	var (
		res    AssignResult
		msgs   []notify.Message
		noCand bool
	)
	err := d.store.InJourney(ctx, journeyID, func(tx store.Tx) error {
		j, err := tx.Journey(ctx, journeyID)
		if err != nil {
			return err
		}
		v, err := tx.Vehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if operatorID != "" && v.OperatorID != operatorID {
			return fmt.Errorf("%w: vehicle %s belongs to operator %s", model.ErrInvalidRequest, v.ID, v.OperatorID)
		}
		if err := inPlay(ctx, tx, j, v.ID); err != nil {
			return err
		}
		r, m, err := d.assign(ctx, tx, j, v, now)
		msgs = m
		if errors.Is(err, model.ErrNoEligibleCandidate) {
			noCand = true
			return nil
		}
		res = r
		return err
	})
	if err != nil {
		return AssignResult{}, err
	}
	notify.Deliver(ctx, d.notifier, d.log, d.bus, msgs)
	if noCand {
		d.publish(events.CrewNoCandidate, model.CrewAssignment{JourneyID: journeyID, VehicleID: vehicleID}, now)
		return AssignResult{}, fmt.Errorf("journey %s vehicle %s: %w", journeyID, vehicleID, model.ErrNoEligibleCandidate)
	}
	if !res.Existing {
		d.publish(events.CrewAssigned, res.Assignment, now)
	}
	return res, nil
}

// DeclineCrewAssignment removes the caller's assignment and re-runs the
// selection for the slot. Only the assigned staff member may decline.
func (d *Dispatcher) DeclineCrewAssignment(ctx context.Context, assignmentID, callerID, reason string, now time.Time) (DeclineResult, error) {
	var journeyID string
	err := d.store.View(ctx, func(tx store.Tx) error {
		a, err := tx.CrewAssignment(ctx, assignmentID)
		journeyID = a.JourneyID
		return err
	})
	if err != nil {
		return DeclineResult{}, err
	}

	var (
		res      DeclineResult
		declined model.CrewAssignment
		msgs     []notify.Message
	)
	err = d.store.InJourney(ctx, journeyID, func(tx store.Tx) error {
		a, err := tx.CrewAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if callerID == "" || a.StaffID != callerID {
			return fmt.Errorf("%w: assignment %s is not held by %q", model.ErrForbidden, a.ID, callerID)
		}
		j, err := tx.Journey(ctx, a.JourneyID)
		if err != nil {
			return err
		}
		v, err := tx.Vehicle(ctx, a.VehicleID)
		if err != nil {
			return err
		}
		if err := tx.AppendCrewEvent(ctx, model.CrewEvent{
			AssignmentID: a.ID,
			JourneyID:    a.JourneyID,
			VehicleID:    a.VehicleID,
			StaffID:      a.StaffID,
			Kind:         model.CrewDeclined,
			Reason:       reason,
			At:           now,
		}); err != nil {
			return err
		}
		if err := tx.DeleteCrewAssignment(ctx, a.ID); err != nil {
			return err
		}
		declined = a

		r, m, err := d.assign(ctx, tx, j, v, now)
		msgs = m
		switch {
		case errors.Is(err, model.ErrNoEligibleCandidate):
			res.Detail = "no eligible candidate; operator alerted"
			return nil
		case err != nil:
			return err
		}
		res.Reassigned = true
		res.Assignment = &r.Assignment
		res.Detail = fmt.Sprintf("reassigned to %s", r.Assignment.StaffID)
		return nil
	})
	if err != nil {
		return DeclineResult{}, err
	}
	notify.Deliver(ctx, d.notifier, d.log, d.bus, msgs)
	d.publish(events.CrewDeclined, declined, now)
	if res.Reassigned {
		d.publish(events.CrewAssigned, *res.Assignment, now)
	} else {
		d.publish(events.CrewNoCandidate, declined, now)
	}
	d.log.Infof("assignment %s declined by %s: %s", assignmentID, callerID, res.Detail)
	return res, nil
}

// assign runs the selection inside tx. It returns the pending notifications
// and model.ErrNoEligibleCandidate after recording the exception.
func (d *Dispatcher) assign(ctx context.Context, tx store.Tx, j model.Journey, v model.Vehicle, now time.Time) (AssignResult, []notify.Message, error) {
	leads, err := tx.LiveLeads(ctx, j.ID)
	if err != nil {
		return AssignResult{}, nil, err
	}
	for _, l := range leads {
		if l.VehicleID == v.ID {
			return AssignResult{Assignment: l, Existing: true}, nil, nil
		}
	}

	cands, err := d.eligible(ctx, tx, j, v.ID, v.OperatorID)
	if err != nil {
		return AssignResult{}, nil, err
	}
	if len(cands) == 0 {
		msgs, err := d.raiseNoCandidate(ctx, tx, j, v, now)
		if err != nil {
			return AssignResult{}, nil, err
		}
		return AssignResult{}, msgs, model.ErrNoEligibleCandidate
	}

	best := Rank(cands)[0]
	a := model.CrewAssignment{
		ID:         d.newID(),
		JourneyID:  j.ID,
		VehicleID:  v.ID,
		StaffID:    best.StaffID,
		Role:       model.RoleLead,
		Status:     model.StatusAssigned,
		AssignedAt: now,
	}
	if err := tx.InsertCrewAssignment(ctx, a); err != nil {
		return AssignResult{}, nil, err
	}
	if err := tx.AppendCrewEvent(ctx, model.CrewEvent{
		AssignmentID: a.ID, JourneyID: j.ID, VehicleID: v.ID, StaffID: a.StaffID, Kind: model.CrewAssigned, At: now,
	}); err != nil {
		return AssignResult{}, nil, err
	}
	if err := tx.AppendLedger(ctx, model.LedgerEntry{
		ID:         d.newID(),
		OperatorID: v.OperatorID,
		VehicleID:  v.ID,
		JourneyID:  j.ID,
		StaffID:    a.StaffID,
		AssignedAt: now,
	}); err != nil {
		return AssignResult{}, nil, err
	}

	st, err := tx.Staff(ctx, a.StaffID)
	if err != nil {
		return AssignResult{}, nil, err
	}
	msg := notify.Message{
		Kind:      notify.KindCrewAssigned,
		To:        st.Contact,
		Subject:   fmt.Sprintf("You are lead on %s departing %s", v.ID, j.Departure.Format(time.RFC3339)),
		JourneyID: j.ID,
		VehicleID: v.ID,
		Data:      map[string]any{"assignment_id": a.ID, "staff_id": a.StaffID},
		At:        now,
	}
	return AssignResult{Assignment: a}, []notify.Message{msg}, nil
}

func (d *Dispatcher) raiseNoCandidate(ctx context.Context, tx store.Tx, j model.Journey, v model.Vehicle, now time.Time) ([]notify.Message, error) {
	open, err := tx.HasOpenException(ctx, j.ID, v.ID, model.ExceptionNoCandidate)
	if err != nil {
		return nil, err
	}
	if !open {
		if err := tx.InsertException(ctx, model.Exception{
			ID:        d.newID(),
			JourneyID: j.ID,
			VehicleID: v.ID,
			Kind:      model.ExceptionNoCandidate,
			Detail:    "captain unassigned: no eligible lead",
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}
	d.log.Warnf("journey %s vehicle %s: no eligible lead", j.ID, v.ID)
	op, err := tx.Operator(ctx, v.OperatorID)
	if model.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []notify.Message{{
		Kind:      notify.KindCaptainUnassigned,
		To:        op.Contact,
		Subject:   fmt.Sprintf("Captain unassigned for %s on %s", v.ID, j.Departure.Format(time.RFC3339)),
		JourneyID: j.ID,
		VehicleID: v.ID,
		At:        now,
	}}, nil
}

// inPlay checks that the vehicle carries parties on the journey or is its
// legacy vehicle.
func inPlay(ctx context.Context, tx store.Tx, j model.Journey, vehicleID string) error {
	if j.VehicleID == vehicleID {
		return nil
	}
	rows, err := tx.Allocations(ctx, j.ID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.VehicleID == vehicleID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", model.ErrVehicleNotInPlay, vehicleID, j.ID)
}

func (d *Dispatcher) publish(action string, a model.CrewAssignment, now time.Time) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(events.CrewEvent{
		Action:       action,
		JourneyID:    a.JourneyID,
		VehicleID:    a.VehicleID,
		StaffID:      a.StaffID,
		AssignmentID: a.ID,
		Time:         now,
	})
}
