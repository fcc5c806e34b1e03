// Package sweep implements the T-24 confirmation sweep. Each run scans the
// journeys departing in [now+lock, now+lock+width), confirms their assigned
// leads, hands manifests and reminders to the notifier, alerts operators of
// journeys without a lead and applies the final minimum-seats guard.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/logger"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/workpool"
)

const leaseName = "pace:sweep:t24"

// Config tunes the sweep.
type Config struct {
	WidthMinutes    int `json:"width_minutes"`
	Workers         int `json:"workers"`
	IntervalSeconds int `json:"interval_seconds"`
	// UnassignedAlert is "once" (default) or "every".
	UnassignedAlert string `json:"unassigned_alert"`
	LeaseSeconds    int    `json:"lease_seconds"`
}

// SetDefaults applies a ten minute sweep.
func (c *Config) SetDefaults() {
	if c.WidthMinutes == 0 {
		c.WidthMinutes = 10
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = c.WidthMinutes * 60
	}
	if c.UnassignedAlert == "" {
		c.UnassignedAlert = AlertOnce
	}
	if c.LeaseSeconds == 0 {
		c.LeaseSeconds = 300
	}
}

// Validate checks the alert mode and durations.
func (c Config) Validate() error {
	if c.UnassignedAlert != AlertOnce && c.UnassignedAlert != AlertEvery {
		return fmt.Errorf("sweep: unknown unassigned_alert %q", c.UnassignedAlert)
	}
	if c.WidthMinutes < 0 || c.IntervalSeconds < 0 || c.Workers < 0 {
		return fmt.Errorf("sweep: negative duration or worker count")
	}
	return nil
}

// Width returns the sweep width.
func (c Config) Width() time.Duration { return time.Duration(c.WidthMinutes) * time.Minute }

// Interval returns the period between scheduled sweeps.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalSeconds) * time.Second }

// Window is the departure range covered by a run.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Result summarises one run.
type Result struct {
	ConfirmedCount   int    `json:"confirmed_count"`
	Window           Window `json:"window"`
	Journeys         int    `json:"journeys"`
	UnassignedAlerts int    `json:"unassigned_alerts"`
	Downgrades       int    `json:"downgrades"`
	Exceptions       int    `json:"exceptions"`
	Failures         int    `json:"failures"`
	NotifyFailures   int    `json:"notify_failures"`
	Skipped          bool   `json:"skipped,omitempty"`
}

// Sweeper runs T-24 sweeps.
type Sweeper struct {
	store    store.Gateway
	notifier notify.Notifier
	guard    AlertGuard
	lease    Lease
	bus      eventbus.EventBus
	log      logger.Logger
	cfg      Config
	lock     time.Duration
	newID    func() string
}

// NewSweeper creates a Sweeper. lock is the distance from departure at which
// allocations lock. guard and lease default to in-process implementations.
func NewSweeper(gw store.Gateway, notifier notify.Notifier, guard AlertGuard, lease Lease, cfg Config, lock time.Duration, bus eventbus.EventBus, log logger.Logger) *Sweeper {
	cfg.SetDefaults()
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if cfg.UnassignedAlert == AlertEvery {
		guard = AlwaysGuard{}
	} else if guard == nil {
		guard = NewMemoryGuard()
	}
	if lease == nil {
		lease = &LocalLease{}
	}
	return &Sweeper{
		store: gw, notifier: notifier, guard: guard, lease: lease,
		bus: bus, log: logger.OrNop(log), cfg: cfg, lock: lock, newID: uuid.NewString,
	}
}

// Config returns the effective configuration.
func (s *Sweeper) Config() Config { return s.cfg }

type journeyResult struct {
	confirmed  int
	downgrades int
	exceptions int
	msgs       []notify.Message
	// unassigned holds the captain-unassigned alerts gated by the guard.
	unassigned []notify.Message
}

// Run executes one sweep at time now. Cancelling ctx stops scheduling new
// journeys; journeys already started complete. Per-journey failures are
// logged and counted in the result.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Result, error) {
	from := now.Add(s.lock)
	res := Result{Window: Window{From: from, To: from.Add(s.cfg.Width())}}

	release, ok, err := s.lease.Acquire(ctx, leaseName, time.Duration(s.cfg.LeaseSeconds)*time.Second)
	if err != nil {
		return res, fmt.Errorf("sweep lease: %w", err)
	}
	if !ok {
		s.log.Infof("sweep skipped: lease held elsewhere")
		res.Skipped = true
		return res, nil
	}
	defer release()

	var journeys []model.Journey
	err = s.store.View(ctx, func(tx store.Tx) error {
		var err error
		journeys, err = tx.Journeys(ctx, res.Window.From, res.Window.To)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("list journeys: %w", err)
	}

	start := time.Now()
	var mu sync.Mutex
	started, err := workpool.ForEach(ctx, len(journeys), s.cfg.Workers, func(ctx context.Context, i int) {
		j := journeys[i]
		jr, perr := s.processJourney(ctx, j, now)
		if perr != nil {
			s.log.Errorf("sweep journey %s: %v", j.ID, perr)
			mu.Lock()
			res.Failures++
			mu.Unlock()
			return
		}
		failed := notify.Deliver(ctx, s.notifier, s.log, s.bus, jr.msgs)
		alerts := 0
		if len(jr.unassigned) > 0 {
			allow, gerr := s.guard.Allow(ctx, j.ID, j.Departure.Sub(now)+time.Hour)
			if gerr != nil {
				s.log.Warnf("alert guard for journey %s: %v", j.ID, gerr)
				allow = true
			}
			if allow {
				alerts = len(jr.unassigned)
				failed += notify.Deliver(ctx, s.notifier, s.log, s.bus, jr.unassigned)
			}
		}
		mu.Lock()
		res.ConfirmedCount += jr.confirmed
		res.Downgrades += jr.downgrades
		res.Exceptions += jr.exceptions
		res.UnassignedAlerts += alerts
		res.NotifyFailures += failed
		mu.Unlock()
	})
	res.Journeys = started

	if s.bus != nil {
		s.bus.Publish(events.SweepEvent{
			From:       res.Window.From,
			To:         res.Window.To,
			Journeys:   res.Journeys,
			Confirmed:  res.ConfirmedCount,
			Alerts:     res.UnassignedAlerts,
			Downgrades: res.Downgrades,
			Exceptions: res.Exceptions,
			Failures:   res.Failures,
			Duration:   time.Since(start),
		})
	}
	s.log.Infof("sweep %s..%s: %d journeys, %d confirmed, %d alerts, %d failures",
		res.Window.From.Format(time.RFC3339), res.Window.To.Format(time.RFC3339),
		res.Journeys, res.ConfirmedCount, res.UnassignedAlerts, res.Failures)
	return res, err
}

func (s *Sweeper) processJourney(ctx context.Context, journey model.Journey, now time.Time) (journeyResult, error) {
	var jr journeyResult
	err := s.store.InJourney(ctx, journey.ID, func(tx store.Tx) error {
		jr = journeyResult{}
		j, err := tx.Journey(ctx, journey.ID)
		if err != nil {
			return err
		}
		if err := s.guardMinSeats(ctx, tx, j, now, &jr); err != nil {
			return fmt.Errorf("min seats guard: %w", err)
		}
		if err := store.SyncJourneyVehicle(ctx, tx, j); err != nil {
			return err
		}

		leads, err := tx.LiveLeads(ctx, j.ID)
		if err != nil {
			return err
		}
		var confirmed []model.CrewAssignment
		for _, a := range leads {
			if a.Status != model.StatusAssigned {
				continue
			}
			if err := s.confirm(ctx, tx, &a, now); err != nil {
				return err
			}
			confirmed = append(confirmed, a)
		}
		jr.confirmed = len(confirmed)
		if len(confirmed) > 0 {
			msgs, err := s.manifests(ctx, tx, j, confirmed, now)
			if err != nil {
				return err
			}
			jr.msgs = append(jr.msgs, msgs...)
		}
		if len(leads) == 0 {
			alerts, err := s.unassignedAlerts(ctx, tx, j, now, &jr)
			if err != nil {
				return err
			}
			jr.unassigned = alerts
		}
		return nil
	})
	return jr, err
}

func (s *Sweeper) confirm(ctx context.Context, tx store.Tx, a *model.CrewAssignment, now time.Time) error {
	v, err := tx.Vehicle(ctx, a.VehicleID)
	if err != nil {
		return err
	}
	at := now
	a.Status = model.StatusConfirmed
	a.ConfirmedAt = &at
	if err := tx.UpdateCrewAssignment(ctx, *a); err != nil {
		return err
	}
	if err := tx.AppendCrewEvent(ctx, model.CrewEvent{
		AssignmentID: a.ID, JourneyID: a.JourneyID, VehicleID: a.VehicleID, StaffID: a.StaffID,
		Kind: model.CrewConfirmed, At: now,
	}); err != nil {
		return err
	}
	if err := tx.ConfirmLedger(ctx, model.LedgerEntry{
		ID:         s.newID(),
		OperatorID: v.OperatorID,
		VehicleID:  a.VehicleID,
		JourneyID:  a.JourneyID,
		StaffID:    a.StaffID,
		AssignedAt: a.AssignedAt,
	}, now); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(events.CrewEvent{
			Action: events.CrewConfirmed, JourneyID: a.JourneyID, VehicleID: a.VehicleID,
			StaffID: a.StaffID, AssignmentID: a.ID, Time: now,
		})
	}
	return nil
}

// manifests builds one manifest per operator of the confirmed leads and one
// reminder per paid party of the route and day.
func (s *Sweeper) manifests(ctx context.Context, tx store.Tx, j model.Journey, confirmed []model.CrewAssignment, now time.Time) ([]notify.Message, error) {
	rows, err := tx.Allocations(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	byVehicle := make(map[string][]model.Allocation)
	for _, r := range rows {
		byVehicle[r.VehicleID] = append(byVehicle[r.VehicleID], r)
	}

	var msgs []notify.Message
	for _, a := range confirmed {
		v, err := tx.Vehicle(ctx, a.VehicleID)
		if err != nil {
			return nil, err
		}
		op, err := tx.Operator(ctx, v.OperatorID)
		if err != nil && !model.IsNotFound(err) {
			return nil, err
		}
		seats := 0
		for _, r := range byVehicle[v.ID] {
			seats += r.Seats
		}
		msgs = append(msgs, notify.Message{
			Kind:      notify.KindManifest,
			To:        op.Contact,
			Subject:   fmt.Sprintf("Manifest %s %s", v.ID, j.Departure.Format(time.RFC3339)),
			JourneyID: j.ID,
			VehicleID: v.ID,
			Data:      map[string]any{"lead": a.StaffID, "seats": seats, "parties": byVehicle[v.ID]},
			At:        now,
		})
	}

	parties, err := tx.Parties(ctx, j.RouteID, j.Date())
	if err != nil {
		return nil, err
	}
	housed := make(map[string]string)
	for _, r := range rows {
		housed[r.OrderID] = r.VehicleID
	}
	for _, p := range parties {
		if p.Contact == "" {
			continue
		}
		msgs = append(msgs, notify.Message{
			Kind:      notify.KindReminder,
			To:        p.Contact,
			Subject:   fmt.Sprintf("Your trip departs %s", j.Departure.Format(time.RFC3339)),
			JourneyID: j.ID,
			VehicleID: housed[p.OrderID],
			Data:      map[string]any{"order_id": p.OrderID, "seats": p.Seats},
			At:        now,
		})
	}
	return msgs, nil
}

// unassignedAlerts records a captain_unassigned exception per vehicle in play
// and returns one alert per operator owning such a vehicle.
func (s *Sweeper) unassignedAlerts(ctx context.Context, tx store.Tx, j model.Journey, now time.Time, jr *journeyResult) ([]notify.Message, error) {
	rows, err := tx.Allocations(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	vehicles := make(map[string]bool)
	for _, r := range rows {
		vehicles[r.VehicleID] = true
	}
	if len(vehicles) == 0 && j.VehicleID != "" {
		vehicles[j.VehicleID] = true
	}
	ops := make(map[string][]string)
	for id := range vehicles {
		v, err := tx.Vehicle(ctx, id)
		if err != nil {
			return nil, err
		}
		ops[v.OperatorID] = append(ops[v.OperatorID], id)

		open, err := tx.HasOpenException(ctx, j.ID, id, model.ExceptionCaptainUnassigned)
		if err != nil {
			return nil, err
		}
		if open {
			continue
		}
		if err := tx.InsertException(ctx, model.Exception{
			ID: s.newID(), JourneyID: j.ID, VehicleID: id, Kind: model.ExceptionCaptainUnassigned,
			Detail:    fmt.Sprintf("no lead assigned to %s at T-24", id),
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		jr.exceptions++
	}
	opIDs := make([]string, 0, len(ops))
	for id := range ops {
		opIDs = append(opIDs, id)
	}
	sort.Strings(opIDs)

	var msgs []notify.Message
	for _, id := range opIDs {
		op, err := tx.Operator(ctx, id)
		if err != nil && !model.IsNotFound(err) {
			return nil, err
		}
		sort.Strings(ops[id])
		msgs = append(msgs, notify.Message{
			Kind:      notify.KindCaptainUnassigned,
			To:        op.Contact,
			Subject:   fmt.Sprintf("Captain unassigned for journey departing %s", j.Departure.Format(time.RFC3339)),
			JourneyID: j.ID,
			Data:      map[string]any{"operator_id": id, "vehicles": ops[id]},
			At:        now,
		})
	}
	return msgs, nil
}
