// Package memory implements the store gateway in process memory. It backs
// development runs and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

// Store keeps all records in maps guarded by a mutex. Journey transactions
// additionally hold a per-journey lock for their whole duration and write
// through an undo log so that a failed transaction leaves no trace.
type Store struct {
	mu sync.RWMutex

	operators     map[string]model.Operator
	journeys      map[string]model.Journey
	vehicles      map[string]model.Vehicle
	routeVehicles []model.RouteVehicle
	parties       []model.Party
	allocations   []model.Allocation
	preferences   []model.CrewPreference
	staff         map[string]model.Staff
	assignments   map[string]model.CrewAssignment
	crewEvents    []model.CrewEvent
	ledger        []model.LedgerEntry
	exceptions    []model.Exception

	locksMu sync.Mutex
	locks   map[string]*journeyLock
}

type journeyLock struct {
	mu   sync.Mutex
	refs int
}

var _ store.Gateway = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		operators:   make(map[string]model.Operator),
		journeys:    make(map[string]model.Journey),
		vehicles:    make(map[string]model.Vehicle),
		staff:       make(map[string]model.Staff),
		assignments: make(map[string]model.CrewAssignment),
		locks:       make(map[string]*journeyLock),
	}
}

// NewFromFixture returns a store seeded with f.
func NewFromFixture(f Fixture) *Store {
	s := New()
	s.Load(f)
	return s
}

// Load adds the fixture records to the store.
func (s *Store) Load(f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range f.Operators {
		s.operators[o.ID] = o
	}
	for _, j := range f.Journeys {
		s.journeys[j.ID] = j
	}
	for _, v := range f.Vehicles {
		s.vehicles[v.ID] = v
	}
	for _, st := range f.Staff {
		s.staff[st.ID] = st
	}
	for _, a := range f.Assignments {
		s.assignments[a.ID] = a
	}
	s.routeVehicles = append(s.routeVehicles, f.RouteVehicles...)
	s.parties = append(s.parties, f.Parties...)
	s.allocations = append(s.allocations, f.Allocations...)
	s.preferences = append(s.preferences, f.Preferences...)
	s.ledger = append(s.ledger, f.Ledger...)
}

// InJourney implements store.Gateway.
func (s *Store) InJourney(ctx context.Context, journeyID string, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.lockJourney(journeyID)
	defer unlock()
	t := &tx{s: s}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// View implements store.Gateway. Writes through the view panic.
func (s *Store) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{s: s, readOnly: true})
}

// Close implements store.Gateway.
func (s *Store) Close() error { return nil }

func (s *Store) lockJourney(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &journeyLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Snapshot returns a copy of the mutable tables. Tests use it to assert on
// the committed state.
func (s *Store) Snapshot() Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := Fixture{
		Allocations: slices.Clone(s.allocations),
		Ledger:      slices.Clone(s.ledger),
	}
	for _, j := range s.journeys {
		f.Journeys = append(f.Journeys, j)
	}
	for _, a := range s.assignments {
		f.Assignments = append(f.Assignments, a)
	}
	sort.Slice(f.Journeys, func(i, k int) bool { return f.Journeys[i].ID < f.Journeys[k].ID })
	sort.Slice(f.Assignments, func(i, k int) bool { return f.Assignments[i].ID < f.Assignments[k].ID })
	return f
}

// CrewHistory returns all crew events.
func (s *Store) CrewHistory() []model.CrewEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.crewEvents)
}

// AllExceptions returns all exception rows.
func (s *Store) AllExceptions() []model.Exception {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.exceptions)
}

type tx struct {
	s        *Store
	readOnly bool
	undo     []func()
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// write runs fn under the store lock and records its undo step.
func (t *tx) write(fn func() func()) {
	if t.readOnly {
		panic("memory store: write in read-only transaction")
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.undo = append(t.undo, fn())
}

func (t *tx) Journey(_ context.Context, id string) (model.Journey, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	j, ok := t.s.journeys[id]
	if !ok {
		return model.Journey{}, model.NotFound("journey", id)
	}
	return j, nil
}

func (t *tx) Journeys(_ context.Context, from, to time.Time) ([]model.Journey, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Journey
	for _, j := range t.s.journeys {
		if !j.Active || j.Departure.Before(from) {
			continue
		}
		if !to.IsZero() && !j.Departure.Before(to) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].Departure.Equal(out[k].Departure) {
			return out[i].Departure.Before(out[k].Departure)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

func (t *tx) Vehicle(_ context.Context, id string) (model.Vehicle, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.s.vehicles[id]
	if !ok {
		return model.Vehicle{}, model.NotFound("vehicle", id)
	}
	return v, nil
}

func (t *tx) Operator(_ context.Context, id string) (model.Operator, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	o, ok := t.s.operators[id]
	if !ok {
		return model.Operator{}, model.NotFound("operator", id)
	}
	return o, nil
}

func (t *tx) RouteCandidates(_ context.Context, routeID string) ([]model.Vehicle, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Vehicle
	seen := make(map[string]bool)
	for _, rv := range t.s.routeVehicles {
		if rv.RouteID != routeID || !rv.Active || seen[rv.VehicleID] {
			continue
		}
		v, ok := t.s.vehicles[rv.VehicleID]
		if !ok || !v.Active {
			continue
		}
		seen[v.ID] = true
		v.Preferred = v.Preferred || rv.Preferred
		out = append(out, v)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (t *tx) Parties(_ context.Context, routeID, date string) ([]model.Party, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Party
	for _, p := range t.s.parties {
		if p.RouteID == routeID && p.Date == date && p.Paid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *tx) Allocations(_ context.Context, journeyID string) ([]model.Allocation, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Allocation
	for _, a := range t.s.allocations {
		if a.JourneyID == journeyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].VehicleID != out[k].VehicleID {
			return out[i].VehicleID < out[k].VehicleID
		}
		return out[i].OrderID < out[k].OrderID
	})
	return out, nil
}

func (t *tx) CrewPreferences(_ context.Context, operatorID, vehicleID string) ([]model.CrewPreference, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.CrewPreference
	for _, p := range t.s.preferences {
		if p.OperatorID == operatorID && p.VehicleID == vehicleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *tx) OperatorStaff(_ context.Context, operatorID string) ([]model.Staff, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Staff
	for _, st := range t.s.staff {
		if st.OperatorID == operatorID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (t *tx) Staff(_ context.Context, id string) (model.Staff, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	st, ok := t.s.staff[id]
	if !ok {
		return model.Staff{}, model.NotFound("staff", id)
	}
	return st, nil
}

func (t *tx) CrewAssignment(_ context.Context, id string) (model.CrewAssignment, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.assignments[id]
	if !ok {
		return model.CrewAssignment{}, model.NotFound("crew assignment", id)
	}
	return a, nil
}

func (t *tx) LiveLeads(_ context.Context, journeyID string) ([]model.CrewAssignment, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.CrewAssignment
	for _, a := range t.s.assignments {
		if a.JourneyID == journeyID && a.Role == model.RoleLead {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].VehicleID < out[k].VehicleID })
	return out, nil
}

func (t *tx) LeadsDepartingBetween(_ context.Context, from, to time.Time) ([]model.CrewAssignment, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.CrewAssignment
	for _, a := range t.s.assignments {
		j, ok := t.s.journeys[a.JourneyID]
		if !ok || a.Role != model.RoleLead {
			continue
		}
		if !j.Departure.Before(from) && j.Departure.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *tx) CrewEvents(_ context.Context, journeyID, vehicleID string) ([]model.CrewEvent, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.CrewEvent
	for _, e := range t.s.crewEvents {
		if e.JourneyID == journeyID && e.VehicleID == vehicleID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) LedgerStats(_ context.Context, operatorID, vehicleID string) (map[string]model.LedgerStats, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make(map[string]model.LedgerStats)
	for _, e := range t.s.ledger {
		if !e.Confirmed || e.OperatorID != operatorID || e.VehicleID != vehicleID {
			continue
		}
		st := out[e.StaffID]
		st.StaffID = e.StaffID
		st.Wins++
		won := e.AssignedAt
		if e.ConfirmedAt != nil {
			won = *e.ConfirmedAt
		}
		if won.After(st.LastWin) {
			st.LastWin = won
		}
		out[e.StaffID] = st
	}
	return out, nil
}

func (t *tx) HasOpenException(_ context.Context, journeyID, vehicleID string, kind model.ExceptionKind) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, e := range t.s.exceptions {
		if e.JourneyID == journeyID && e.VehicleID == vehicleID && e.Kind == kind && !e.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) Exceptions(_ context.Context, journeyID string) ([]model.Exception, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []model.Exception
	for _, e := range t.s.exceptions {
		if journeyID == "" || e.JourneyID == journeyID {
			out = append(out, e)
		}
	}
	return out, nil
}

// restoreJourney snapshots the rows of one journey. The returned undo step
// puts them back without touching rows of other journeys, which may be
// written concurrently under their own locks.
func restoreJourney[T any](rows *[]T, journeyID string, journeyOf func(T) string) func() {
	var old []T
	for _, r := range *rows {
		if journeyOf(r) == journeyID {
			old = append(old, r)
		}
	}
	return func() {
		kept := slices.DeleteFunc(slices.Clone(*rows), func(r T) bool { return journeyOf(r) == journeyID })
		*rows = append(kept, old...)
	}
}

func allocJourney(a model.Allocation) string   { return a.JourneyID }
func ledgerJourney(e model.LedgerEntry) string { return e.JourneyID }
func eventJourney(e model.CrewEvent) string    { return e.JourneyID }
func excJourney(e model.Exception) string      { return e.JourneyID }

func (t *tx) ReplaceAllocations(_ context.Context, journeyID, operatorID string, rows []model.Allocation) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.allocations, journeyID, allocJourney)
		kept := slices.DeleteFunc(slices.Clone(t.s.allocations), func(a model.Allocation) bool {
			return a.JourneyID == journeyID && (operatorID == "" || t.s.vehicles[a.VehicleID].OperatorID == operatorID)
		})
		t.s.allocations = append(kept, rows...)
		return undo
	})
	return nil
}

func (t *tx) DeleteVehicleAllocations(_ context.Context, journeyID, vehicleID string) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.allocations, journeyID, allocJourney)
		t.s.allocations = slices.DeleteFunc(slices.Clone(t.s.allocations), func(a model.Allocation) bool {
			return a.JourneyID == journeyID && a.VehicleID == vehicleID
		})
		return undo
	})
	return nil
}

func (t *tx) MergeAllocations(_ context.Context, rows []model.Allocation) error {
	if len(rows) == 0 {
		return nil
	}
	t.write(func() func() {
		undo := restoreJourney(&t.s.allocations, rows[0].JourneyID, allocJourney)
		next := slices.Clone(t.s.allocations)
	rows:
		for _, r := range rows {
			for i, a := range next {
				if a.JourneyID == r.JourneyID && a.VehicleID == r.VehicleID && a.OrderID == r.OrderID {
					next[i].Seats = r.Seats
					continue rows
				}
			}
			next = append(next, r)
		}
		t.s.allocations = next
		return undo
	})
	return nil
}

func (t *tx) SetJourneyVehicle(_ context.Context, journeyID, vehicleID string) error {
	var err error
	t.write(func() func() {
		j, ok := t.s.journeys[journeyID]
		if !ok {
			err = model.NotFound("journey", journeyID)
			return func() {}
		}
		old := j
		j.VehicleID = vehicleID
		t.s.journeys[journeyID] = j
		return func() { t.s.journeys[journeyID] = old }
	})
	return err
}

func (t *tx) restoreAssignment(id string) func() {
	old, existed := t.s.assignments[id]
	return func() {
		if existed {
			t.s.assignments[id] = old
		} else {
			delete(t.s.assignments, id)
		}
	}
}

func (t *tx) InsertCrewAssignment(_ context.Context, a model.CrewAssignment) error {
	t.write(func() func() {
		undo := t.restoreAssignment(a.ID)
		t.s.assignments[a.ID] = a
		return undo
	})
	return nil
}

func (t *tx) UpdateCrewAssignment(_ context.Context, a model.CrewAssignment) error {
	var err error
	t.write(func() func() {
		if _, ok := t.s.assignments[a.ID]; !ok {
			err = model.NotFound("crew assignment", a.ID)
			return func() {}
		}
		undo := t.restoreAssignment(a.ID)
		t.s.assignments[a.ID] = a
		return undo
	})
	return err
}

func (t *tx) DeleteCrewAssignment(_ context.Context, id string) error {
	t.write(func() func() {
		undo := t.restoreAssignment(id)
		delete(t.s.assignments, id)
		return undo
	})
	return nil
}

func (t *tx) AppendCrewEvent(_ context.Context, e model.CrewEvent) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.crewEvents, e.JourneyID, eventJourney)
		t.s.crewEvents = append(t.s.crewEvents, e)
		return undo
	})
	return nil
}

func (t *tx) AppendLedger(_ context.Context, e model.LedgerEntry) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.ledger, e.JourneyID, ledgerJourney)
		t.s.ledger = append(t.s.ledger, e)
		return undo
	})
	return nil
}

func (t *tx) ConfirmLedger(_ context.Context, e model.LedgerEntry, at time.Time) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.ledger, e.JourneyID, ledgerJourney)
		next := slices.Clone(t.s.ledger)
		found := false
		for i, l := range next {
			if l.JourneyID == e.JourneyID && l.VehicleID == e.VehicleID && l.StaffID == e.StaffID && !l.Confirmed {
				next[i].Confirmed = true
				next[i].ConfirmedAt = &at
				found = true
			}
		}
		if !found {
			e.Confirmed = true
			e.ConfirmedAt = &at
			next = append(next, e)
		}
		t.s.ledger = next
		return undo
	})
	return nil
}

func (t *tx) MoveLedger(_ context.Context, journeyID, staffID, from, to string) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.ledger, journeyID, ledgerJourney)
		next := slices.Clone(t.s.ledger)
		for i, l := range next {
			if l.JourneyID == journeyID && l.StaffID == staffID && l.VehicleID == from && !l.Confirmed {
				next[i].VehicleID = to
			}
		}
		t.s.ledger = next
		return undo
	})
	return nil
}

func (t *tx) InsertException(_ context.Context, e model.Exception) error {
	t.write(func() func() {
		undo := restoreJourney(&t.s.exceptions, e.JourneyID, excJourney)
		t.s.exceptions = append(t.s.exceptions, e)
		return undo
	})
	return nil
}
