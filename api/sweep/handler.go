// Package sweep exposes an on-demand T-24 sweep.
package sweep

import (
	"context"
	"net/http"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api"
	coresweep "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/sweep"
)

// Runner runs one sweep.
type Runner interface {
	Run(ctx context.Context, now time.Time) (coresweep.Result, error)
}

// NewHandler serves POST /api/sweep/run.
func NewHandler(s Runner, clock api.Clock) http.Handler {
	clock = clock.OrNow()
	return api.Method(http.MethodPost, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Run(r.Context(), clock())
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}))
}
