// Package crew exposes lead crew assignment and declines over HTTP.
package crew

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api"
	corecrew "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/crew"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Dispatcher is the part of crew.Dispatcher the handlers need.
type Dispatcher interface {
	AssignCrew(ctx context.Context, journeyID, vehicleID, operatorID string, now time.Time) (corecrew.AssignResult, error)
	DeclineCrewAssignment(ctx context.Context, assignmentID, callerID, reason string, now time.Time) (corecrew.DeclineResult, error)
}

// AssignRequest selects the journey vehicle that needs a lead.
type AssignRequest struct {
	JourneyID  string `json:"journey_id"`
	VehicleID  string `json:"vehicle_id"`
	OperatorID string `json:"operator_id,omitempty"`
}

// AssignResponse wraps the assignment. NoEligibleCandidate is set instead
// when nobody could be picked; the operator has been alerted.
type AssignResponse struct {
	corecrew.AssignResult
	NoEligibleCandidate bool   `json:"no_eligible_candidate,omitempty"`
	Detail              string `json:"detail,omitempty"`
}

// NewAssignHandler serves POST /api/crew/assign.
func NewAssignHandler(d Dispatcher, clock api.Clock) http.Handler {
	clock = clock.OrNow()
	return api.Method(http.MethodPost, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AssignRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteError(w, r, err)
			return
		}
		if req.JourneyID == "" || req.VehicleID == "" {
			api.WriteError(w, r, fmt.Errorf("%w: journey_id and vehicle_id are required", model.ErrInvalidRequest))
			return
		}
		res, err := d.AssignCrew(r.Context(), req.JourneyID, req.VehicleID, req.OperatorID, clock())
		switch {
		case errors.Is(err, model.ErrNoEligibleCandidate):
			api.WriteJSON(w, http.StatusOK, AssignResponse{NoEligibleCandidate: true, Detail: err.Error()})
		case err != nil:
			api.WriteError(w, r, err)
		default:
			api.WriteJSON(w, http.StatusOK, AssignResponse{AssignResult: res})
		}
	}))
}

// DeclineRequest carries an optional free-text reason.
type DeclineRequest struct {
	AssignmentID string `json:"assignment_id"`
	Reason       string `json:"reason,omitempty"`
}

// NewDeclineHandler serves POST /api/crew/decline. The caller must be the
// assigned staff member.
func NewDeclineHandler(d Dispatcher, clock api.Clock) http.Handler {
	clock = clock.OrNow()
	return api.Method(http.MethodPost, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := api.RequireCaller(w, r)
		if !ok {
			return
		}
		var req DeclineRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteError(w, r, err)
			return
		}
		if req.AssignmentID == "" {
			api.WriteError(w, r, fmt.Errorf("%w: assignment_id is required", model.ErrInvalidRequest))
			return
		}
		res, err := d.DeclineCrewAssignment(r.Context(), req.AssignmentID, caller, req.Reason, clock())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}))
}
