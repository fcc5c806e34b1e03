package crew

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func crewFixture() memory.Fixture {
	won := now.Add(-30 * 24 * time.Hour)
	f := memory.Fixture{
		Operators: []model.Operator{{ID: "op1", Contact: "ops@example.com"}},
		Journeys: []model.Journey{
			{ID: "j1", RouteID: "r1", Departure: now.Add(48 * time.Hour), Active: true, VehicleID: "V1"},
		},
		Vehicles: []model.Vehicle{{ID: "V1", OperatorID: "op1", Active: true, MaxSeats: 8}, {ID: "V2", OperatorID: "op1", Active: true, MaxSeats: 8}},
		Staff: []model.Staff{
			{ID: "1", OperatorID: "op1", Active: true, Role: "Captain", Contact: "1@example.com"},
			{ID: "2", OperatorID: "op1", Active: true, Role: "Captain", Contact: "2@example.com"},
			{ID: "3", OperatorID: "op1", Active: true, Role: "Captain", Contact: "3@example.com"},
			{ID: "4", OperatorID: "op1", Active: false, Role: "Captain"},
		},
		Preferences: []model.CrewPreference{
			{OperatorID: "op1", VehicleID: "V1", StaffID: "1", Priority: 2, LeadEligible: true},
			{OperatorID: "op1", VehicleID: "V1", StaffID: "2", Priority: 1, LeadEligible: true},
			{OperatorID: "op1", VehicleID: "V1", StaffID: "3", Priority: 1, LeadEligible: true},
			{OperatorID: "op1", VehicleID: "V1", StaffID: "4", Priority: 0, LeadEligible: true},
		},
	}
	for i := 0; i < 5; i++ {
		f.Ledger = append(f.Ledger, model.LedgerEntry{
			ID: fmt.Sprintf("l%d", i), OperatorID: "op1", VehicleID: "V1", JourneyID: fmt.Sprintf("old%d", i),
			StaffID: "2", Confirmed: true, AssignedAt: won, ConfirmedAt: &won,
		})
	}
	return f
}

func newDispatcher(st *memory.Store, n notify.Notifier, cfg Config) *Dispatcher {
	d := NewDispatcher(st, n, cfg, nil, nil)
	seq := 0
	d.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return d
}

func TestAssignCrewPicksRankedLeadAndWritesLedger(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == notify.KindCrewAssigned && m.To == "3@example.com"
	})).Return(nil).Once()

	res, err := newDispatcher(st, n, Config{}).AssignCrew(context.Background(), "j1", "V1", "op1", now)
	require.NoError(t, err)
	assert.False(t, res.Existing)
	assert.Equal(t, "3", res.Assignment.StaffID)
	assert.Equal(t, model.StatusAssigned, res.Assignment.Status)
	n.AssertExpectations(t)

	snap := st.Snapshot()
	last := snap.Ledger[len(snap.Ledger)-1]
	assert.Equal(t, "3", last.StaffID)
	assert.False(t, last.Confirmed)
}

func TestAssignCrewIsIdempotent(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	d := newDispatcher(st, nil, Config{})
	first, err := d.AssignCrew(context.Background(), "j1", "V1", "", now)
	require.NoError(t, err)
	ledger := len(st.Snapshot().Ledger)

	second, err := d.AssignCrew(context.Background(), "j1", "V1", "", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.Assignment, second.Assignment)
	assert.Len(t, st.Snapshot().Ledger, ledger)
	assert.Len(t, st.Snapshot().Assignments, 1)
}

func TestAssignCrewRejectsVehicleNotInPlay(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	_, err := newDispatcher(st, nil, Config{}).AssignCrew(context.Background(), "j1", "V2", "op1", now)
	assert.ErrorIs(t, err, model.ErrVehicleNotInPlay)
}

func TestAssignCrewFallsBackToCaptains(t *testing.T) {
	f := crewFixture()
	f.Preferences = nil
	f.Staff = append(f.Staff, model.Staff{ID: "0-deckhand", OperatorID: "op1", Active: true, Role: "deckhand"})
	st := memory.NewFromFixture(f)
	res, err := newDispatcher(st, nil, Config{}).AssignCrew(context.Background(), "j1", "V1", "op1", now)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Assignment.StaffID)
}

func TestAssignCrewNoCandidateRecordsException(t *testing.T) {
	f := crewFixture()
	f.Preferences = f.Preferences[3:]
	st := memory.NewFromFixture(f)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == notify.KindCaptainUnassigned && m.To == "ops@example.com"
	})).Return(errors.New("mail down"))

	d := newDispatcher(st, n, Config{})
	_, err := d.AssignCrew(context.Background(), "j1", "V1", "op1", now)
	require.ErrorIs(t, err, model.ErrNoEligibleCandidate)
	_, err = d.AssignCrew(context.Background(), "j1", "V1", "op1", now)
	require.ErrorIs(t, err, model.ErrNoEligibleCandidate)

	exc := st.AllExceptions()
	require.Len(t, exc, 1)
	assert.Equal(t, model.ExceptionNoCandidate, exc[0].Kind)
	n.AssertNumberOfCalls(t, "Notify", 2)
}

func TestAssignCrewStrictOverlapSkipsBusyStaff(t *testing.T) {
	f := crewFixture()
	f.Journeys = append(f.Journeys, model.Journey{ID: "j0", RouteID: "r2", Departure: now.Add(47 * time.Hour), Active: true})
	f.Assignments = []model.CrewAssignment{{ID: "busy", JourneyID: "j0", VehicleID: "V9", StaffID: "3", Role: model.RoleLead, Status: model.StatusAssigned}}

	relaxed, err := newDispatcher(memory.NewFromFixture(f), nil, Config{}).AssignCrew(context.Background(), "j1", "V1", "", now)
	require.NoError(t, err)
	assert.Equal(t, "3", relaxed.Assignment.StaffID)

	strict, err := newDispatcher(memory.NewFromFixture(f), nil, Config{StrictOverlap: true, OverlapMinutes: 120}).AssignCrew(context.Background(), "j1", "V1", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2", strict.Assignment.StaffID)
}

func TestDeclineReassignsToNextCandidate(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	d := newDispatcher(st, nil, Config{})
	first, err := d.AssignCrew(context.Background(), "j1", "V1", "", now)
	require.NoError(t, err)

	res, err := d.DeclineCrewAssignment(context.Background(), first.Assignment.ID, "3", "sick", now)
	require.NoError(t, err)
	require.True(t, res.Reassigned)
	assert.Equal(t, "2", res.Assignment.StaffID)

	snap := st.Snapshot()
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "2", snap.Assignments[0].StaffID)

	var declined []string
	for _, e := range st.CrewHistory() {
		if e.Kind == model.CrewDeclined {
			declined = append(declined, e.StaffID+":"+e.Reason)
		}
	}
	assert.Equal(t, []string{"3:sick"}, declined)

	// 3 declined this slot, so after 2 and 1 decline nobody is left.
	res, err = d.DeclineCrewAssignment(context.Background(), res.Assignment.ID, "2", "", now)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Assignment.StaffID)
	res, err = d.DeclineCrewAssignment(context.Background(), res.Assignment.ID, "1", "", now)
	require.NoError(t, err)
	assert.False(t, res.Reassigned)
	assert.Empty(t, st.Snapshot().Assignments)
	assert.Len(t, st.AllExceptions(), 1)
}

func TestDeclineByNonOwnerIsForbidden(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	d := newDispatcher(st, nil, Config{})
	first, err := d.AssignCrew(context.Background(), "j1", "V1", "", now)
	require.NoError(t, err)
	before := st.Snapshot()

	_, err = d.DeclineCrewAssignment(context.Background(), first.Assignment.ID, "2", "", now)
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Equal(t, before.Assignments, st.Snapshot().Assignments)
	assert.Empty(t, st.CrewHistory()[1:])
}

func TestDeclineUnknownAssignment(t *testing.T) {
	st := memory.NewFromFixture(crewFixture())
	_, err := newDispatcher(st, nil, Config{}).DeclineCrewAssignment(context.Background(), "nope", "1", "", now)
	assert.True(t, model.IsNotFound(err))
}

func TestDeclineAndAssignRaceKeepsOneLead(t *testing.T) {
	for round := 0; round < 20; round++ {
		st := memory.NewFromFixture(crewFixture())
		d := NewDispatcher(st, nil, Config{}, nil, nil)
		first, err := d.AssignCrew(context.Background(), "j1", "V1", "", now)
		require.NoError(t, err)
		ledger := len(st.Snapshot().Ledger)

		var wg sync.WaitGroup
		var declineErr, assignErr error
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, declineErr = d.DeclineCrewAssignment(context.Background(), first.Assignment.ID, "3", "swap", now)
		}()
		go func() {
			defer wg.Done()
			<-start
			_, assignErr = d.AssignCrew(context.Background(), "j1", "V1", "", now)
		}()
		close(start)
		wg.Wait()
		require.NoError(t, declineErr)
		require.NoError(t, assignErr)

		snap := st.Snapshot()
		require.Len(t, snap.Assignments, 1, "round %d", round)
		assert.Equal(t, "2", snap.Assignments[0].StaffID)
		assert.Len(t, snap.Ledger, ledger+1, "round %d", round)
	}
}
