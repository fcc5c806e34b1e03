package sweep

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coresweep "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/sweep"
)

type runnerFunc func(ctx context.Context, now time.Time) (coresweep.Result, error)

func (f runnerFunc) Run(ctx context.Context, now time.Time) (coresweep.Result, error) {
	return f(ctx, now)
}

func TestHandler(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	h := NewHandler(runnerFunc(func(_ context.Context, at time.Time) (coresweep.Result, error) {
		return coresweep.Result{ConfirmedCount: 2, Window: coresweep.Window{From: at.Add(24 * time.Hour), To: at.Add(24*time.Hour + 10*time.Minute)}}, nil
	}), func() time.Time { return now })

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sweep/run", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out coresweep.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ConfirmedCount != 2 || !out.Window.From.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("unexpected result %+v", out)
	}

	h = NewHandler(runnerFunc(func(context.Context, time.Time) (coresweep.Result, error) {
		return coresweep.Result{}, errors.New("store down")
	}), nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sweep/run", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}
