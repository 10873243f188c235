package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

type createUserStub struct {
	created  *pgrepo.UserRecord
	err      error
	lastHash string
}

func (s *createUserStub) Create(_ context.Context, _ pgx.Tx, email, passwordHash string) (pgrepo.UserRecord, error) {
	if s.err != nil {
		return pgrepo.UserRecord{}, s.err
	}
	s.lastHash = passwordHash
	rec := pgrepo.UserRecord{ID: 501, Email: email, IsActive: true}
	s.created = &rec
	return rec, nil
}

func (s *createUserStub) FindByEmail(context.Context, string) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
}

func (s *createUserStub) GetByID(context.Context, int64) (pgrepo.UserRecord, error) {
	if s.created == nil {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return *s.created, nil
}

func (s *createUserStub) TouchLastActive(context.Context, int64) error { return nil }

type profileStoreStub struct {
	profile *pgrepo.ProfileRecord
	prefs   *pgrepo.PreferenceRecord
}

func (s *profileStoreStub) Create(_ context.Context, _ pgx.Tx, profile pgrepo.ProfileRecord) error {
	s.profile = &profile
	return nil
}

func (s *profileStoreStub) UpsertPreferences(_ context.Context, pref pgrepo.PreferenceRecord) error {
	s.prefs = &pref
	return nil
}

type sessionStoreStub struct {
	sessions map[string]SessionRecord
}

func (s *sessionStoreStub) Create(_ context.Context, session SessionRecord, _ string) error {
	if s.sessions == nil {
		s.sessions = map[string]SessionRecord{}
	}
	s.sessions[session.SID] = session
	return nil
}

func (s *sessionStoreStub) GetSession(_ context.Context, sid string) (SessionRecord, error) {
	session, ok := s.sessions[sid]
	if !ok {
		return SessionRecord{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) GetByRefreshToken(context.Context, string) (SessionRecord, error) {
	return SessionRecord{}, ErrRefreshNotFound
}

func (s *sessionStoreStub) RotateRefresh(context.Context, string, string, string, time.Time) error {
	return nil
}

func (s *sessionStoreStub) DeleteSession(context.Context, string) error   { return nil }
func (s *sessionStoreStub) DeleteAllForUser(context.Context, int64) error { return nil }

func newRegisterService(users UserStore, profiles ProfileStore) *Service {
	return &Service{
		jwt:      NewJWTManager("test-secret", 15*time.Minute),
		sessions: &sessionStoreStub{},
		users:    users,
		profiles: profiles,
		cfg:      Config{RefreshTTL: MinRefreshTTL, BcryptCost: 4},
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return fn(ctx, nil)
		},
		now: time.Now,
	}
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:       "Bob@Example.com",
		Password:    "Sunrise42",
		DisplayName: "Bob",
		Birthdate:   time.Date(1994, 6, 12, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
	}
}

func TestRegisterCreatesUserProfileAndPreferences(t *testing.T) {
	users := &createUserStub{}
	profiles := &profileStoreStub{}
	svc := newRegisterService(users, profiles)

	res, err := svc.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected tokens in register result")
	}
	if res.Me.Email != "bob@example.com" {
		t.Fatalf("expected lowercased email, got %q", res.Me.Email)
	}

	if users.lastHash == "" || users.lastHash == "Sunrise42" {
		t.Fatal("expected password to be hashed")
	}
	if profiles.profile == nil || profiles.profile.UserID != 501 {
		t.Fatalf("expected profile created for user 501, got %+v", profiles.profile)
	}
	if profiles.prefs == nil || profiles.prefs.PreferredGender != "all" {
		t.Fatalf("expected default preferences, got %+v", profiles.prefs)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc := newRegisterService(&createUserStub{}, &profileStoreStub{})

	cases := []string{"short1A", "nouppercase1", "NoDigitsHere", ""}
	for _, password := range cases {
		input := validRegisterInput()
		input.Password = password
		if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("password %q: expected ErrInvalidInput, got %v", password, err)
		}
	}
}

func TestRegisterRejectsUnderage(t *testing.T) {
	svc := newRegisterService(&createUserStub{}, &profileStoreStub{})

	input := validRegisterInput()
	input.Birthdate = time.Now().UTC().AddDate(-17, 0, 0)
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for underage, got %v", err)
	}
}

func TestRegisterMapsEmailConflict(t *testing.T) {
	users := &createUserStub{err: pgrepo.ErrEmailTaken}
	svc := newRegisterService(users, &profileStoreStub{})

	if _, err := svc.Register(context.Background(), validRegisterInput()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsBadGender(t *testing.T) {
	svc := newRegisterService(&createUserStub{}, &profileStoreStub{})

	input := validRegisterInput()
	input.Gender = "robot"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for gender, got %v", err)
	}
}
