package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrProfileNotFound = errors.New("profile not found")
)

const (
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 50
	MinHeightCM          = 100
	MaxHeightCM          = 250
	MinPreferenceAge     = 18
	MaxPreferenceAge     = 120
	MaxDistanceKM        = 500
	MaxInterestsPerUser  = 10
)

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (pgrepo.ProfileRecord, error)
	Update(ctx context.Context, profile pgrepo.ProfileRecord) error
	GetPreferences(ctx context.Context, userID int64) (pgrepo.PreferenceRecord, error)
	UpsertPreferences(ctx context.Context, pref pgrepo.PreferenceRecord) error
	ListInterests(ctx context.Context) ([]pgrepo.InterestRecord, error)
	ListUserInterests(ctx context.Context, userID int64) ([]pgrepo.InterestRecord, error)
	SetUserInterests(ctx context.Context, userID int64, interestIDs []int64) error
}

type PhotoStore interface {
	ListForUser(ctx context.Context, userID int64) ([]pgrepo.PhotoRecord, error)
}

type Photo struct {
	ID        int64
	URL       string
	IsPrimary bool
	Position  int
}

type Interest struct {
	ID       int64
	Name     string
	Category string
}

type Profile struct {
	UserID      int64
	DisplayName string
	Age         int
	Birthdate   time.Time
	Gender      string
	Bio         string
	City        string
	Occupation  string
	Education   string
	HeightCM    int
	LookingFor  string
	Photos      []Photo
	Interests   []Interest
	UpdatedAt   time.Time
}

type UpdateInput struct {
	DisplayName string
	Bio         string
	City        string
	Occupation  string
	Education   string
	HeightCM    int
	LookingFor  string
}

type Preferences struct {
	MinAge          int
	MaxAge          int
	PreferredGender string
	MaxDistanceKM   int
}

type Service struct {
	profiles ProfileStore
	photos   PhotoStore
	now      func() time.Time
}

func NewService(profiles ProfileStore, photos PhotoStore) *Service {
	return &Service{
		profiles: profiles,
		photos:   photos,
		now:      time.Now,
	}
}

// Get assembles the full profile card: base record, photos and interests.
func (s *Service) Get(ctx context.Context, userID int64) (Profile, error) {
	if userID <= 0 {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	rec, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}

	photoRecords, err := s.photos.ListForUser(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("list photos: %w", err)
	}
	interestRecords, err := s.profiles.ListUserInterests(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("list interests: %w", err)
	}

	profile := Profile{
		UserID:      rec.UserID,
		DisplayName: rec.DisplayName,
		Age:         rules.AgeAt(rec.Birthdate, s.now()),
		Birthdate:   rec.Birthdate,
		Gender:      rec.Gender,
		Bio:         rec.Bio,
		City:        rec.City,
		Occupation:  rec.Occupation,
		Education:   rec.Education,
		HeightCM:    rec.HeightCM,
		LookingFor:  rec.LookingFor,
		UpdatedAt:   rec.UpdatedAt,
	}
	for _, p := range photoRecords {
		profile.Photos = append(profile.Photos, Photo{
			ID:        p.ID,
			URL:       p.URL,
			IsPrimary: p.IsPrimary,
			Position:  p.Position,
		})
	}
	for _, i := range interestRecords {
		profile.Interests = append(profile.Interests, Interest{
			ID:       i.ID,
			Name:     i.Name,
			Category: i.Category,
		})
	}

	return profile, nil
}

func (s *Service) Update(ctx context.Context, userID int64, input UpdateInput) (Profile, error) {
	if userID <= 0 {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if err := validateUpdate(input); err != nil {
		return Profile{}, err
	}

	err := s.profiles.Update(ctx, pgrepo.ProfileRecord{
		UserID:      userID,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Bio:         strings.TrimSpace(input.Bio),
		City:        strings.TrimSpace(input.City),
		Occupation:  strings.TrimSpace(input.Occupation),
		Education:   strings.TrimSpace(input.Education),
		HeightCM:    input.HeightCM,
		LookingFor:  strings.TrimSpace(input.LookingFor),
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *Service) GetPreferences(ctx context.Context, userID int64) (Preferences, error) {
	if userID <= 0 {
		return Preferences{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	rec, err := s.profiles.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return Preferences{}, ErrProfileNotFound
		}
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}

	return Preferences{
		MinAge:          rec.MinAge,
		MaxAge:          rec.MaxAge,
		PreferredGender: rec.PreferredGender,
		MaxDistanceKM:   rec.MaxDistanceKM,
	}, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID int64, prefs Preferences) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if prefs.MinAge < MinPreferenceAge || prefs.MaxAge > MaxPreferenceAge || prefs.MinAge > prefs.MaxAge {
		return fmt.Errorf("%w: age range must be within %d..%d", ErrValidation, MinPreferenceAge, MaxPreferenceAge)
	}
	switch prefs.PreferredGender {
	case "male", "female", "all":
	default:
		return fmt.Errorf("%w: preferred gender must be male, female or all", ErrValidation)
	}
	if prefs.MaxDistanceKM <= 0 || prefs.MaxDistanceKM > MaxDistanceKM {
		return fmt.Errorf("%w: distance must be within 1..%d km", ErrValidation, MaxDistanceKM)
	}

	if err := s.profiles.UpsertPreferences(ctx, pgrepo.PreferenceRecord{
		UserID:          userID,
		MinAge:          prefs.MinAge,
		MaxAge:          prefs.MaxAge,
		PreferredGender: prefs.PreferredGender,
		MaxDistanceKM:   prefs.MaxDistanceKM,
	}); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	return nil
}

func (s *Service) ListInterests(ctx context.Context) ([]Interest, error) {
	records, err := s.profiles.ListInterests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}

	items := make([]Interest, 0, len(records))
	for _, rec := range records {
		items = append(items, Interest{ID: rec.ID, Name: rec.Name, Category: rec.Category})
	}

	return items, nil
}

func (s *Service) SetInterests(ctx context.Context, userID int64, interestIDs []int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(interestIDs) > MaxInterestsPerUser {
		return fmt.Errorf("%w: at most %d interests", ErrValidation, MaxInterestsPerUser)
	}
	seen := make(map[int64]struct{}, len(interestIDs))
	for _, id := range interestIDs {
		if id <= 0 {
			return fmt.Errorf("%w: invalid interest id", ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate interest id", ErrValidation)
		}
		seen[id] = struct{}{}
	}

	if err := s.profiles.SetUserInterests(ctx, userID, interestIDs); err != nil {
		return fmt.Errorf("set interests: %w", err)
	}

	return nil
}

func validateUpdate(input UpdateInput) error {
	name := strings.TrimSpace(input.DisplayName)
	if len([]rune(name)) < MinDisplayNameLength || len([]rune(name)) > MaxDisplayNameLength {
		return fmt.Errorf("%w: display name must be %d-%d characters", ErrValidation, MinDisplayNameLength, MaxDisplayNameLength)
	}
	if len([]rune(input.Bio)) > rules.MaxBioLength {
		return fmt.Errorf("%w: bio must be at most %d characters", ErrValidation, rules.MaxBioLength)
	}
	if input.HeightCM != 0 && (input.HeightCM < MinHeightCM || input.HeightCM > MaxHeightCM) {
		return fmt.Errorf("%w: height must be within %d..%d cm", ErrValidation, MinHeightCM, MaxHeightCM)
	}
	return nil
}
