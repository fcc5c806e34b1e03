// Package allocations exposes journey finalization and vehicle removal over
// HTTP.
package allocations

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Allocator is the part of allocation.Allocator the handlers need.
type Allocator interface {
	FinalizeAllocations(ctx context.Context, req allocation.FinalizeRequest, now time.Time) (allocation.FinalizeResult, error)
	RemoveVehicle(ctx context.Context, journeyID, vehicleID string, now time.Time) (allocation.RemovalResult, error)
}

// NewFinalizeHandler serves POST /api/allocations/finalize.
func NewFinalizeHandler(a Allocator, clock api.Clock) http.Handler {
	clock = clock.OrNow()
	return api.Method(http.MethodPost, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req allocation.FinalizeRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteError(w, r, err)
			return
		}
		res, err := a.FinalizeAllocations(r.Context(), req, clock())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}))
}

// RemoveRequest names the vehicle to pull from a journey.
type RemoveRequest struct {
	JourneyID string `json:"journey_id"`
	VehicleID string `json:"vehicle_id"`
}

// NewRemoveVehicleHandler serves POST /api/allocations/remove-vehicle.
func NewRemoveVehicleHandler(a Allocator, clock api.Clock) http.Handler {
	clock = clock.OrNow()
	return api.Method(http.MethodPost, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RemoveRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteError(w, r, err)
			return
		}
		if req.JourneyID == "" || req.VehicleID == "" {
			api.WriteError(w, r, fmt.Errorf("%w: journey_id and vehicle_id are required", model.ErrInvalidRequest))
			return
		}
		res, err := a.RemoveVehicle(r.Context(), req.JourneyID, req.VehicleID, clock())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}))
}
