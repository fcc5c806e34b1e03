package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ledgerFixture() Fixture {
	return Fixture{
		Journeys: []model.Journey{
			{ID: "j1", RouteID: "r1", Departure: now.Add(48 * time.Hour), Active: true},
			{ID: "j2", RouteID: "r1", Departure: now.Add(49 * time.Hour), Active: true},
		},
		Ledger: []model.LedgerEntry{
			{ID: "l1", OperatorID: "op1", VehicleID: "A", JourneyID: "j1", StaffID: "s1", AssignedAt: now},
		},
	}
}

func TestMoveLedgerRekeysUnconfirmedRows(t *testing.T) {
	st := NewFromFixture(ledgerFixture())
	ctx := context.Background()
	require.NoError(t, st.InJourney(ctx, "j1", func(tx store.Tx) error {
		return tx.MoveLedger(ctx, "j1", "s1", "A", "B")
	}))
	ledger := st.Snapshot().Ledger
	require.Len(t, ledger, 1)
	assert.Equal(t, "B", ledger[0].VehicleID)

	// confirmed rows keep their vehicle
	require.NoError(t, st.InJourney(ctx, "j1", func(tx store.Tx) error {
		if err := tx.ConfirmLedger(ctx, ledger[0], now); err != nil {
			return err
		}
		return tx.MoveLedger(ctx, "j1", "s1", "B", "C")
	}))
	assert.Equal(t, "B", st.Snapshot().Ledger[0].VehicleID)
}

func TestRollbackIsJourneyScoped(t *testing.T) {
	st := NewFromFixture(ledgerFixture())
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := st.InJourney(ctx, "j1", func(tx store.Tx) error {
		if err := tx.MoveLedger(ctx, "j1", "s1", "A", "B"); err != nil {
			return err
		}
		// a second journey commits while j1 is still open
		if err := st.InJourney(ctx, "j2", func(tx2 store.Tx) error {
			return tx2.AppendLedger(ctx, model.LedgerEntry{ID: "l2", OperatorID: "op1", VehicleID: "A", JourneyID: "j2", StaffID: "s2", AssignedAt: now})
		}); err != nil {
			return err
		}
		// reads outside j1 see its uncommitted write
		var seen string
		for _, l := range st.Snapshot().Ledger {
			if l.ID == "l1" {
				seen = l.VehicleID
			}
		}
		assert.Equal(t, "B", seen)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	byID := map[string]model.LedgerEntry{}
	for _, l := range st.Snapshot().Ledger {
		byID[l.ID] = l
	}
	require.Len(t, byID, 2)
	assert.Equal(t, "A", byID["l1"].VehicleID)
	assert.Equal(t, "j2", byID["l2"].JourneyID)
}
