package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Column lists follow the field order of the model structs so rows can be
// collected with RowToStructByPos.
const (
	operatorCols   = `id, name, contact`
	vehicleCols    = `v.id, v.operator_id, v.name, v.active, v.min_seats, v.max_seats, v.preferred`
	journeyCols    = `id, route_id, departure, active, COALESCE(vehicle_id, '')`
	partyCols      = `order_id, route_id, to_char(travel_date, 'YYYY-MM-DD'), seats, contact, paid`
	allocationCols = `journey_id, vehicle_id, order_id, seats`
	preferenceCols = `operator_id, vehicle_id, staff_id, priority, lead_eligible`
	staffCols      = `id, operator_id, name, active, role, contact`
	assignmentCols = `a.id, a.journey_id, a.vehicle_id, a.staff_id, a.role, a.status, a.assigned_at, a.confirmed_at`
	crewEventCols  = `assignment_id, journey_id, vehicle_id, staff_id, kind, reason, at`
	exceptionCols  = `id, journey_id, vehicle_id, kind, detail, created_at, resolved`
)

func list[T any](ctx context.Context, q querier, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[T])
}

func one[T any](ctx context.Context, q querier, kind, id, sql string) (T, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[T])
	if isNoRows(err) {
		return v, model.NotFound(kind, id)
	}
	if err != nil {
		return v, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return v, nil
}

func (t *tx) Journey(ctx context.Context, id string) (model.Journey, error) {
	return one[model.Journey](ctx, t.q, "journey", id, `SELECT `+journeyCols+` FROM journeys WHERE id = $1`)
}

func (t *tx) Journeys(ctx context.Context, from, to time.Time) ([]model.Journey, error) {
	var toArg *time.Time
	if !to.IsZero() {
		toArg = &to
	}
	out, err := list[model.Journey](ctx, t.q, `
		SELECT `+journeyCols+` FROM journeys
		WHERE active AND departure >= $1 AND ($2::timestamptz IS NULL OR departure < $2)
		ORDER BY departure, id`, from, toArg)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	return out, nil
}

func (t *tx) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	return one[model.Vehicle](ctx, t.q, "vehicle", id, `SELECT `+vehicleCols+` FROM vehicles v WHERE v.id = $1`)
}

func (t *tx) Operator(ctx context.Context, id string) (model.Operator, error) {
	return one[model.Operator](ctx, t.q, "operator", id, `SELECT `+operatorCols+` FROM operators WHERE id = $1`)
}

func (t *tx) RouteCandidates(ctx context.Context, routeID string) ([]model.Vehicle, error) {
	out, err := list[model.Vehicle](ctx, t.q, `
		SELECT v.id, v.operator_id, v.name, v.active, v.min_seats, v.max_seats, v.preferred OR rv.preferred
		FROM route_vehicles rv JOIN vehicles v ON v.id = rv.vehicle_id
		WHERE rv.route_id = $1 AND rv.active AND v.active
		ORDER BY v.id`, routeID)
	if err != nil {
		return nil, fmt.Errorf("route candidates %s: %w", routeID, err)
	}
	return out, nil
}

func (t *tx) Parties(ctx context.Context, routeID, date string) ([]model.Party, error) {
	out, err := list[model.Party](ctx, t.q, `
		SELECT `+partyCols+` FROM parties
		WHERE route_id = $1 AND travel_date = $2::date AND paid
		ORDER BY order_id`, routeID, date)
	if err != nil {
		return nil, fmt.Errorf("parties %s %s: %w", routeID, date, err)
	}
	return out, nil
}

func (t *tx) Allocations(ctx context.Context, journeyID string) ([]model.Allocation, error) {
	out, err := list[model.Allocation](ctx, t.q, `
		SELECT `+allocationCols+` FROM allocations WHERE journey_id = $1
		ORDER BY vehicle_id, order_id`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("allocations %s: %w", journeyID, err)
	}
	return out, nil
}

func (t *tx) CrewPreferences(ctx context.Context, operatorID, vehicleID string) ([]model.CrewPreference, error) {
	out, err := list[model.CrewPreference](ctx, t.q, `
		SELECT `+preferenceCols+` FROM crew_preferences
		WHERE operator_id = $1 AND vehicle_id = $2`, operatorID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("crew preferences: %w", err)
	}
	return out, nil
}

func (t *tx) OperatorStaff(ctx context.Context, operatorID string) ([]model.Staff, error) {
	out, err := list[model.Staff](ctx, t.q, `SELECT `+staffCols+` FROM staff WHERE operator_id = $1 ORDER BY id`, operatorID)
	if err != nil {
		return nil, fmt.Errorf("operator staff %s: %w", operatorID, err)
	}
	return out, nil
}

func (t *tx) Staff(ctx context.Context, id string) (model.Staff, error) {
	return one[model.Staff](ctx, t.q, "staff", id, `SELECT `+staffCols+` FROM staff WHERE id = $1`)
}

func (t *tx) CrewAssignment(ctx context.Context, id string) (model.CrewAssignment, error) {
	return one[model.CrewAssignment](ctx, t.q, "crew assignment", id, `SELECT `+assignmentCols+` FROM crew_assignments a WHERE a.id = $1`)
}

func (t *tx) LiveLeads(ctx context.Context, journeyID string) ([]model.CrewAssignment, error) {
	out, err := list[model.CrewAssignment](ctx, t.q, `
		SELECT `+assignmentCols+` FROM crew_assignments a
		WHERE a.journey_id = $1 AND a.role = $2
		ORDER BY a.vehicle_id`, journeyID, model.RoleLead)
	if err != nil {
		return nil, fmt.Errorf("live leads %s: %w", journeyID, err)
	}
	return out, nil
}

func (t *tx) LeadsDepartingBetween(ctx context.Context, from, to time.Time) ([]model.CrewAssignment, error) {
	out, err := list[model.CrewAssignment](ctx, t.q, `
		SELECT `+assignmentCols+` FROM crew_assignments a
		JOIN journeys j ON j.id = a.journey_id
		WHERE a.role = $1 AND j.departure >= $2 AND j.departure < $3`, model.RoleLead, from, to)
	if err != nil {
		return nil, fmt.Errorf("leads departing: %w", err)
	}
	return out, nil
}

func (t *tx) CrewEvents(ctx context.Context, journeyID, vehicleID string) ([]model.CrewEvent, error) {
	out, err := list[model.CrewEvent](ctx, t.q, `
		SELECT `+crewEventCols+` FROM crew_events
		WHERE journey_id = $1 AND vehicle_id = $2 ORDER BY seq`, journeyID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("crew events: %w", err)
	}
	return out, nil
}

func (t *tx) LedgerStats(ctx context.Context, operatorID, vehicleID string) (map[string]model.LedgerStats, error) {
	rows, err := t.q.Query(ctx, `
		SELECT staff_id, count(*), max(COALESCE(confirmed_at, assigned_at))
		FROM crew_ledger
		WHERE confirmed AND operator_id = $1 AND vehicle_id = $2
		GROUP BY staff_id`, operatorID, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()
	out := make(map[string]model.LedgerStats)
	for rows.Next() {
		var st model.LedgerStats
		if err := rows.Scan(&st.StaffID, &st.Wins, &st.LastWin); err != nil {
			return nil, fmt.Errorf("ledger stats: %w", err)
		}
		out[st.StaffID] = st
	}
	return out, rows.Err()
}

func (t *tx) HasOpenException(ctx context.Context, journeyID, vehicleID string, kind model.ExceptionKind) (bool, error) {
	var open bool
	err := t.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM journey_exceptions
		WHERE journey_id = $1 AND vehicle_id = $2 AND kind = $3 AND NOT resolved)`,
		journeyID, vehicleID, string(kind)).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("open exception: %w", err)
	}
	return open, nil
}

func (t *tx) Exceptions(ctx context.Context, journeyID string) ([]model.Exception, error) {
	out, err := list[model.Exception](ctx, t.q, `
		SELECT `+exceptionCols+` FROM journey_exceptions
		WHERE $1::text = '' OR journey_id = $1
		ORDER BY created_at, id`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("exceptions: %w", err)
	}
	return out, nil
}
