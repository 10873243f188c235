package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
	discoverysvc "github.com/sparklabs/spark/internal/services/discovery"
)

type candidateStoreStub struct {
	records []pgrepo.CandidateRecord
}

func (s candidateStoreStub) ListCandidates(context.Context, int64, int, int, string, int, int) ([]pgrepo.CandidateRecord, error) {
	return s.records, nil
}

type preferenceStoreStub struct {
	prefs *pgrepo.PreferenceRecord
}

func (s preferenceStoreStub) GetPreferences(context.Context, int64) (pgrepo.PreferenceRecord, error) {
	if s.prefs == nil {
		return pgrepo.PreferenceRecord{}, pgrepo.ErrProfileNotFound
	}
	return *s.prefs, nil
}

func (s preferenceStoreStub) ListUserInterests(context.Context, int64) ([]pgrepo.InterestRecord, error) {
	return nil, nil
}

func TestDiscoverWithoutPreferences(t *testing.T) {
	svc := discoverysvc.NewService(candidateStoreStub{}, preferenceStoreStub{}, discoverysvc.Config{})
	h := NewDiscoverHandler(svc)

	rr := httptest.NewRecorder()
	h.Feed(rr, authedRequest(http.MethodGet, "/discover", 1))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "PREFERENCES_MISSING" {
		t.Fatalf("unexpected error code: %q", payload.Code)
	}
}

func TestDiscoverReturnsCandidates(t *testing.T) {
	svc := discoverysvc.NewService(
		candidateStoreStub{records: []pgrepo.CandidateRecord{{
			UserID:      2,
			DisplayName: "Bob",
			Birthdate:   time.Now().UTC().AddDate(-30, 0, -1),
			Gender:      "male",
			City:        "Lisbon",
		}}},
		preferenceStoreStub{prefs: &pgrepo.PreferenceRecord{
			UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all",
		}},
		discoverysvc.Config{},
	)
	h := NewDiscoverHandler(svc)

	rr := httptest.NewRecorder()
	h.Feed(rr, authedRequest(http.MethodGet, "/discover?limit=10", 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload struct {
		Candidates []struct {
			UserID      int64  `json:"userId"`
			DisplayName string `json:"displayName"`
			Age         int    `json:"age"`
		} `json:"candidates"`
		HasMore bool `json:"hasMore"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(payload.Candidates))
	}
	if payload.Candidates[0].UserID != 2 || payload.Candidates[0].Age != 30 {
		t.Fatalf("unexpected candidate: %+v", payload.Candidates[0])
	}
	if payload.HasMore {
		t.Fatal("expected hasMore false on a short page")
	}
}
