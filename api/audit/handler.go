// Package audit exposes the audit trail and the open operator exceptions.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/api"
	coreaudit "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/audit"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

// Querier reads audit records.
type Querier interface {
	Query(ctx context.Context, q coreaudit.Query) ([]coreaudit.Record, error)
}

// NewHandler returns an HTTP handler exposing audit records via GET /api/audit.
// It filters on start, end (RFC3339), journey_id and kind.
func NewHandler(q Querier) http.Handler {
	return api.Method(http.MethodGet, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, err := parseQuery(r)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		records, err := q.Query(r.Context(), query)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if records == nil {
			records = []coreaudit.Record{}
		}
		api.WriteJSON(w, http.StatusOK, records)
	}))
}

func parseQuery(r *http.Request) (coreaudit.Query, error) {
	v := r.URL.Query()
	q := coreaudit.Query{JourneyID: v.Get("journey_id"), Kind: v.Get("kind")}
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		s := v.Get(f.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("%w: %s: %v", model.ErrInvalidRequest, f.name, err)
		}
		*f.dst = t
	}
	return q, nil
}

// NewExceptionsHandler lists exception rows via GET /api/exceptions. An
// empty journey_id lists all of them.
func NewExceptionsHandler(gw store.Gateway) http.Handler {
	return api.Method(http.MethodGet, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		journeyID := r.URL.Query().Get("journey_id")
		var out []model.Exception
		err := gw.View(r.Context(), func(tx store.Tx) error {
			var err error
			out, err = tx.Exceptions(r.Context(), journeyID)
			return err
		})
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		if out == nil {
			out = []model.Exception{}
		}
		api.WriteJSON(w, http.StatusOK, out)
	}))
}
