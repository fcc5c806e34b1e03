package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	coreaudit "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/audit"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
)

type memStore struct {
	recs []coreaudit.Record
	last coreaudit.Query
}

func (m *memStore) Query(_ context.Context, q coreaudit.Query) ([]coreaudit.Record, error) {
	m.last = q
	var res []coreaudit.Record
	for _, r := range m.recs {
		if q.JourneyID != "" && r.JourneyID != q.JourneyID {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func TestHandler_Filters(t *testing.T) {
	st := &memStore{recs: []coreaudit.Record{
		{Timestamp: time.Now(), Kind: coreaudit.KindAllocation, JourneyID: "j1", Outcome: "written"},
		{Timestamp: time.Now(), Kind: coreaudit.KindCrew, JourneyID: "j2", Outcome: "assigned"},
	}}
	h := NewHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/audit?journey_id=j1&kind=allocation&start=2026-01-01T00:00:00Z", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []coreaudit.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].JourneyID != "j1" {
		t.Fatalf("expected 1 record for j1, got %+v", out)
	}
	if st.last.Kind != coreaudit.KindAllocation || st.last.Start.Year() != 2026 {
		t.Fatalf("query not parsed: %+v", st.last)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/audit?end=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestExceptionsHandler(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	err := st.InJourney(ctx, "j1", func(tx store.Tx) error {
		return tx.InsertException(ctx, model.Exception{
			ID: "e1", JourneyID: "j1", VehicleID: "v1",
			Kind: model.ExceptionNoCandidate, Detail: "no lead", CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	h := NewExceptionsHandler(st)

	for _, c := range []struct {
		query string
		want  int
	}{{"?journey_id=j1", 1}, {"?journey_id=j2", 0}, {"", 1}} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/exceptions"+c.query, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d", c.query, rr.Code)
		}
		var out []model.Exception
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(out) != c.want {
			t.Errorf("%s: got %d exceptions want %d", c.query, len(out), c.want)
		}
	}
}
