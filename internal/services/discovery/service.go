package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrPreferencesMissing = errors.New("preferences are not set")
)

type CandidateStore interface {
	ListCandidates(ctx context.Context, viewerID int64, minAge, maxAge int, preferredGender string, limit, offset int) ([]pgrepo.CandidateRecord, error)
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID int64) (pgrepo.PreferenceRecord, error)
	ListUserInterests(ctx context.Context, userID int64) ([]pgrepo.InterestRecord, error)
}

type Config struct {
	Limit    int
	LimitMax int
}

type Candidate struct {
	UserID             int64
	DisplayName        string
	Age                int
	Gender             string
	Bio                string
	City               string
	Occupation         string
	PhotoURLs          []string
	Interests          []string
	SharedInterests    []string
	CompatibilityScore int
	LastActive         time.Time
}

type Feed struct {
	Candidates []Candidate
	HasMore    bool
}

type Service struct {
	candidates  CandidateStore
	preferences PreferenceStore
	cfg         Config
	now         func() time.Time
}

func NewService(candidates CandidateStore, preferences PreferenceStore, cfg Config) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = rules.DiscoverLimitDefault
	}
	if cfg.LimitMax <= 0 {
		cfg.LimitMax = rules.DiscoverLimitMax
	}

	return &Service{
		candidates:  candidates,
		preferences: preferences,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Feed assembles the swipe deck: active strangers inside the viewer's
// preference window, minus anyone already swiped on or blocked either way.
func (s *Service) Feed(ctx context.Context, viewerID int64, limit, offset int) (Feed, error) {
	if viewerID <= 0 {
		return Feed{}, ErrValidation
	}
	if s.candidates == nil || s.preferences == nil {
		return Feed{}, fmt.Errorf("discovery dependencies are not configured")
	}

	if limit <= 0 {
		limit = s.cfg.Limit
	}
	if limit > s.cfg.LimitMax {
		limit = s.cfg.LimitMax
	}
	if offset < 0 {
		offset = 0
	}

	prefs, err := s.preferences.GetPreferences(ctx, viewerID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Feed{}, ErrPreferencesMissing
		}
		return Feed{}, fmt.Errorf("get preferences: %w", err)
	}

	viewerInterests, err := s.preferences.ListUserInterests(ctx, viewerID)
	if err != nil {
		return Feed{}, fmt.Errorf("list viewer interests: %w", err)
	}
	viewerSet := make(map[string]struct{}, len(viewerInterests))
	for _, interest := range viewerInterests {
		viewerSet[interest.Name] = struct{}{}
	}

	records, err := s.candidates.ListCandidates(ctx, viewerID, prefs.MinAge, prefs.MaxAge, prefs.PreferredGender, limit, offset)
	if err != nil {
		return Feed{}, fmt.Errorf("list candidates: %w", err)
	}

	now := s.now().UTC()
	feed := Feed{
		Candidates: make([]Candidate, 0, len(records)),
		HasMore:    len(records) == limit,
	}
	for _, rec := range records {
		candidate := Candidate{
			UserID:      rec.UserID,
			DisplayName: rec.DisplayName,
			Age:         rules.AgeAt(rec.Birthdate, now),
			Gender:      rec.Gender,
			Bio:         rec.Bio,
			City:        rec.City,
			Occupation:  rec.Occupation,
			PhotoURLs:   rec.PhotoURLs,
			Interests:   rec.Interests,
			LastActive:  rec.LastActive,
		}

		for _, name := range rec.Interests {
			if _, ok := viewerSet[name]; ok {
				candidate.SharedInterests = append(candidate.SharedInterests, name)
			}
		}
		candidate.CompatibilityScore = compatibilityScore(len(viewerSet), len(rec.Interests), len(candidate.SharedInterests))

		feed.Candidates = append(feed.Candidates, candidate)
	}

	return feed, nil
}

func compatibilityScore(viewerCount, candidateCount, shared int) int {
	if viewerCount == 0 {
		return 0
	}
	denom := viewerCount
	if candidateCount > denom {
		denom = candidateCount
	}
	if denom == 0 {
		return 0
	}
	return int(float64(shared)/float64(denom)*100 + 0.5)
}
