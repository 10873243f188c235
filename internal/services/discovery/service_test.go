package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

type candidateStoreFake struct {
	records []pgrepo.CandidateRecord

	lastMinAge int
	lastMaxAge int
	lastGender string
	lastLimit  int
	lastOffset int
}

func (s *candidateStoreFake) ListCandidates(_ context.Context, _ int64, minAge, maxAge int, preferredGender string, limit, offset int) ([]pgrepo.CandidateRecord, error) {
	s.lastMinAge = minAge
	s.lastMaxAge = maxAge
	s.lastGender = preferredGender
	s.lastLimit = limit
	s.lastOffset = offset
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

type preferenceStoreFake struct {
	prefs     *pgrepo.PreferenceRecord
	interests []pgrepo.InterestRecord
}

func (s *preferenceStoreFake) GetPreferences(context.Context, int64) (pgrepo.PreferenceRecord, error) {
	if s.prefs == nil {
		return pgrepo.PreferenceRecord{}, pgrepo.ErrProfileNotFound
	}
	return *s.prefs, nil
}

func (s *preferenceStoreFake) ListUserInterests(context.Context, int64) ([]pgrepo.InterestRecord, error) {
	return s.interests, nil
}

func birthdateForAge(age int) time.Time {
	return time.Now().UTC().AddDate(-age, 0, -1)
}

func TestFeedRequiresPreferences(t *testing.T) {
	svc := NewService(&candidateStoreFake{}, &preferenceStoreFake{}, Config{})

	if _, err := svc.Feed(context.Background(), 1, 0, 0); !errors.Is(err, ErrPreferencesMissing) {
		t.Fatalf("expected ErrPreferencesMissing, got %v", err)
	}
}

func TestFeedPassesPreferenceWindowToStore(t *testing.T) {
	candidates := &candidateStoreFake{}
	prefs := &preferenceStoreFake{prefs: &pgrepo.PreferenceRecord{
		UserID: 1, MinAge: 25, MaxAge: 35, PreferredGender: "female",
	}}
	svc := NewService(candidates, prefs, Config{Limit: 20, LimitMax: 50})

	if _, err := svc.Feed(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if candidates.lastMinAge != 25 || candidates.lastMaxAge != 35 || candidates.lastGender != "female" {
		t.Fatalf("preference window not forwarded: min=%d max=%d gender=%q",
			candidates.lastMinAge, candidates.lastMaxAge, candidates.lastGender)
	}
	if candidates.lastLimit != 20 {
		t.Fatalf("expected default limit 20, got %d", candidates.lastLimit)
	}
}

func TestFeedForwardsOffset(t *testing.T) {
	candidates := &candidateStoreFake{}
	prefs := &preferenceStoreFake{prefs: &pgrepo.PreferenceRecord{UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all"}}
	svc := NewService(candidates, prefs, Config{Limit: 20, LimitMax: 50})

	if _, err := svc.Feed(context.Background(), 1, 0, 40); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if candidates.lastOffset != 40 {
		t.Fatalf("expected offset 40, got %d", candidates.lastOffset)
	}

	if _, err := svc.Feed(context.Background(), 1, 0, -3); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if candidates.lastOffset != 0 {
		t.Fatalf("expected negative offset clamped to 0, got %d", candidates.lastOffset)
	}
}

func TestFeedClampsLimit(t *testing.T) {
	candidates := &candidateStoreFake{}
	prefs := &preferenceStoreFake{prefs: &pgrepo.PreferenceRecord{UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all"}}
	svc := NewService(candidates, prefs, Config{Limit: 20, LimitMax: 50})

	if _, err := svc.Feed(context.Background(), 1, 500, 0); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if candidates.lastLimit != 50 {
		t.Fatalf("expected limit clamped to 50, got %d", candidates.lastLimit)
	}
}

func TestFeedComputesSharedInterestsAndScore(t *testing.T) {
	candidates := &candidateStoreFake{records: []pgrepo.CandidateRecord{
		{
			UserID:      2,
			DisplayName: "Bob",
			Birthdate:   birthdateForAge(30),
			Gender:      "male",
			Interests:   []string{"Hiking", "Wine", "Gaming", "Surfing"},
		},
	}}
	prefs := &preferenceStoreFake{
		prefs: &pgrepo.PreferenceRecord{UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all"},
		interests: []pgrepo.InterestRecord{
			{ID: 1, Name: "Hiking"},
			{ID: 2, Name: "Wine"},
		},
	}
	svc := NewService(candidates, prefs, Config{})

	feed, err := svc.Feed(context.Background(), 1, 0, 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed.Candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(feed.Candidates))
	}

	c := feed.Candidates[0]
	if c.Age != 30 {
		t.Fatalf("expected age 30, got %d", c.Age)
	}
	if len(c.SharedInterests) != 2 {
		t.Fatalf("expected 2 shared interests, got %v", c.SharedInterests)
	}
	// 2 shared of max(2 viewer, 4 candidate) interests.
	if c.CompatibilityScore != 50 {
		t.Fatalf("expected score 50, got %d", c.CompatibilityScore)
	}
}

func TestFeedScoreZeroWithoutViewerInterests(t *testing.T) {
	candidates := &candidateStoreFake{records: []pgrepo.CandidateRecord{
		{UserID: 2, DisplayName: "Bob", Birthdate: birthdateForAge(28), Interests: []string{"Hiking"}},
	}}
	prefs := &preferenceStoreFake{prefs: &pgrepo.PreferenceRecord{UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all"}}
	svc := NewService(candidates, prefs, Config{})

	feed, err := svc.Feed(context.Background(), 1, 0, 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if feed.Candidates[0].CompatibilityScore != 0 {
		t.Fatalf("expected zero score, got %d", feed.Candidates[0].CompatibilityScore)
	}
}

func TestFeedHasMore(t *testing.T) {
	var records []pgrepo.CandidateRecord
	for i := int64(2); i < 7; i++ {
		records = append(records, pgrepo.CandidateRecord{UserID: i, Birthdate: birthdateForAge(25)})
	}
	candidates := &candidateStoreFake{records: records}
	prefs := &preferenceStoreFake{prefs: &pgrepo.PreferenceRecord{UserID: 1, MinAge: 18, MaxAge: 99, PreferredGender: "all"}}
	svc := NewService(candidates, prefs, Config{Limit: 5, LimitMax: 50})

	feed, err := svc.Feed(context.Background(), 1, 5, 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !feed.HasMore {
		t.Fatal("expected hasMore when page is full")
	}

	feed, err = svc.Feed(context.Background(), 1, 10, 0)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if feed.HasMore {
		t.Fatal("expected hasMore false on a short page")
	}
}
