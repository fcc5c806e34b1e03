package allocations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

type fakeAllocator struct {
	req       allocation.FinalizeRequest
	now       time.Time
	removeErr error
}

func (f *fakeAllocator) FinalizeAllocations(_ context.Context, req allocation.FinalizeRequest, now time.Time) (allocation.FinalizeResult, error) {
	f.req, f.now = req, now
	return allocation.FinalizeResult{Changed: 1, Details: []allocation.Outcome{{JourneyID: "j1", Written: 2, Reason: allocation.ReasonWritten}}}, nil
}

func (f *fakeAllocator) RemoveVehicle(_ context.Context, journeyID, vehicleID string, _ time.Time) (allocation.RemovalResult, error) {
	if f.removeErr != nil {
		return allocation.RemovalResult{}, f.removeErr
	}
	return allocation.RemovalResult{JourneyID: journeyID, VehicleID: vehicleID, Summary: "moved 1 party"}, nil
}

var fixed = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestFinalizeHandler(t *testing.T) {
	a := &fakeAllocator{}
	h := NewFinalizeHandler(a, clock)

	req := httptest.NewRequest(http.MethodPost, "/api/allocations/finalize", strings.NewReader(`{"operator_id":"op1"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if a.req.OperatorID != "op1" || !a.now.Equal(fixed) {
		t.Fatalf("unexpected call %+v at %v", a.req, a.now)
	}
	var out allocation.FinalizeResult
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Changed != 1 || out.Details[0].Reason != allocation.ReasonWritten {
		t.Fatalf("unexpected result %+v", out)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus":1}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestRemoveVehicleHandler(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"ok", `{"journey_id":"j1","vehicle_id":"v1"}`, nil, http.StatusOK},
		{"missing", `{"journey_id":"j1"}`, nil, http.StatusBadRequest},
		{"conflict", `{"journey_id":"j1","vehicle_id":"v1"}`, fmt.Errorf("remove: %w", model.ErrCapacityConflict), http.StatusConflict},
		{"unknown", `{"journey_id":"j1","vehicle_id":"v9"}`, model.NotFound("vehicle", "v9"), http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewRemoveVehicleHandler(&fakeAllocator{removeErr: c.err}, clock)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.body)))
			if rr.Code != c.want {
				t.Fatalf("expected %d got %d: %s", c.want, rr.Code, rr.Body.String())
			}
		})
	}
}
