package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

func (t *tx) ReplaceAllocations(ctx context.Context, journeyID, operatorID string, rows []model.Allocation) error {
	_, err := t.q.Exec(ctx, `
		DELETE FROM allocations a
		WHERE a.journey_id = $1
		  AND ($2::text = '' OR EXISTS (SELECT 1 FROM vehicles v WHERE v.id = a.vehicle_id AND v.operator_id = $2))`,
		journeyID, operatorID)
	if err != nil {
		return fmt.Errorf("clear allocations %s: %w", journeyID, err)
	}
	return t.insertAllocations(ctx, rows)
}

func (t *tx) insertAllocations(ctx context.Context, rows []model.Allocation) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`
			INSERT INTO allocations (journey_id, vehicle_id, order_id, seats) VALUES ($1, $2, $3, $4)
			ON CONFLICT (journey_id, vehicle_id, order_id) DO UPDATE SET seats = EXCLUDED.seats`,
			r.JourneyID, r.VehicleID, r.OrderID, r.Seats)
	}
	return t.sendBatch(ctx, b, "write allocations")
}

func (t *tx) sendBatch(ctx context.Context, b *pgx.Batch, what string) error {
	br := t.q.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	return br.Close()
}

func (t *tx) DeleteVehicleAllocations(ctx context.Context, journeyID, vehicleID string) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM allocations WHERE journey_id = $1 AND vehicle_id = $2`, journeyID, vehicleID); err != nil {
		return fmt.Errorf("delete allocations %s/%s: %w", journeyID, vehicleID, err)
	}
	return nil
}

func (t *tx) MergeAllocations(ctx context.Context, rows []model.Allocation) error {
	return t.insertAllocations(ctx, rows)
}

func (t *tx) SetJourneyVehicle(ctx context.Context, journeyID, vehicleID string) error {
	tag, err := t.q.Exec(ctx, `UPDATE journeys SET vehicle_id = NULLIF($2, '') WHERE id = $1`, journeyID, vehicleID)
	if err != nil {
		return fmt.Errorf("set journey vehicle %s: %w", journeyID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("journey", journeyID)
	}
	return nil
}

func (t *tx) InsertCrewAssignment(ctx context.Context, a model.CrewAssignment) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO crew_assignments (id, journey_id, vehicle_id, staff_id, role, status, assigned_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.JourneyID, a.VehicleID, a.StaffID, a.Role, string(a.Status), a.AssignedAt, a.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("insert crew assignment %s: %w", a.ID, err)
	}
	return nil
}

func (t *tx) UpdateCrewAssignment(ctx context.Context, a model.CrewAssignment) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE crew_assignments
		SET journey_id = $2, vehicle_id = $3, staff_id = $4, role = $5, status = $6, assigned_at = $7, confirmed_at = $8
		WHERE id = $1`,
		a.ID, a.JourneyID, a.VehicleID, a.StaffID, a.Role, string(a.Status), a.AssignedAt, a.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("update crew assignment %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("crew assignment", a.ID)
	}
	return nil
}

func (t *tx) DeleteCrewAssignment(ctx context.Context, id string) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM crew_assignments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete crew assignment %s: %w", id, err)
	}
	return nil
}

func (t *tx) AppendCrewEvent(ctx context.Context, e model.CrewEvent) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO crew_events (assignment_id, journey_id, vehicle_id, staff_id, kind, reason, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.AssignmentID, e.JourneyID, e.VehicleID, e.StaffID, string(e.Kind), e.Reason, e.At)
	if err != nil {
		return fmt.Errorf("append crew event: %w", err)
	}
	return nil
}

func (t *tx) AppendLedger(ctx context.Context, e model.LedgerEntry) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO crew_ledger (id, operator_id, vehicle_id, journey_id, staff_id, confirmed, assigned_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OperatorID, e.VehicleID, e.JourneyID, e.StaffID, e.Confirmed, e.AssignedAt, e.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func (t *tx) ConfirmLedger(ctx context.Context, e model.LedgerEntry, at time.Time) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE crew_ledger SET confirmed = TRUE, confirmed_at = $4
		WHERE journey_id = $1 AND vehicle_id = $2 AND staff_id = $3 AND NOT confirmed`,
		e.JourneyID, e.VehicleID, e.StaffID, at)
	if err != nil {
		return fmt.Errorf("confirm ledger: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	e.Confirmed = true
	e.ConfirmedAt = &at
	return t.AppendLedger(ctx, e)
}

func (t *tx) MoveLedger(ctx context.Context, journeyID, staffID, from, to string) error {
	_, err := t.q.Exec(ctx, `
		UPDATE crew_ledger SET vehicle_id = $4
		WHERE journey_id = $1 AND staff_id = $2 AND vehicle_id = $3 AND NOT confirmed`,
		journeyID, staffID, from, to)
	if err != nil {
		return fmt.Errorf("move ledger: %w", err)
	}
	return nil
}

func (t *tx) InsertException(ctx context.Context, e model.Exception) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO journey_exceptions (id, journey_id, vehicle_id, kind, detail, created_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.JourneyID, e.VehicleID, string(e.Kind), e.Detail, e.CreatedAt, e.Resolved)
	if err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	return nil
}
