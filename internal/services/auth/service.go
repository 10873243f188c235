package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

const (
	MinRefreshTTL = 30 * 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	MinRegisterAge = 18
	MaxRegisterAge = 120
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

type UserStore interface {
	Create(ctx context.Context, tx pgx.Tx, email, passwordHash string) (pgrepo.UserRecord, error)
	FindByEmail(ctx context.Context, email string) (pgrepo.UserRecord, error)
	GetByID(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
	TouchLastActive(ctx context.Context, userID int64) error
}

type ProfileStore interface {
	Create(ctx context.Context, tx pgx.Tx, profile pgrepo.ProfileRecord) error
	UpsertPreferences(ctx context.Context, pref pgrepo.PreferenceRecord) error
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	JWT      *JWTManager
	Sessions SessionStore
	Users    UserStore
	Profiles ProfileStore
}

type Config struct {
	RefreshTTL time.Duration
	BcryptCost int
}

type Service struct {
	jwt      *JWTManager
	sessions SessionStore
	users    UserStore
	profiles ProfileStore
	cfg      Config
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.RefreshTTL < MinRefreshTTL {
		cfg.RefreshTTL = MinRefreshTTL
	}
	if cfg.RefreshTTL > MaxRefreshTTL {
		cfg.RefreshTTL = MaxRefreshTTL
	}

	return &Service{
		jwt:      deps.JWT,
		sessions: deps.Sessions,
		users:    deps.Users,
		profiles: deps.Profiles,
		cfg:      cfg,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
		now: time.Now,
	}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	if s.users == nil || s.profiles == nil {
		return AuthResult{}, fmt.Errorf("auth dependencies are not configured")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	displayName := strings.TrimSpace(input.DisplayName)
	gender := strings.ToLower(strings.TrimSpace(input.Gender))

	if !validEmail(email) {
		return AuthResult{}, ErrInvalidInput
	}
	if err := ValidatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}
	if len(displayName) < 2 || len(displayName) > 50 {
		return AuthResult{}, ErrInvalidInput
	}
	if !validGender(gender) {
		return AuthResult{}, ErrInvalidInput
	}

	age := rules.AgeAt(input.Birthdate, s.now().UTC())
	if age < MinRegisterAge || age > MaxRegisterAge {
		return AuthResult{}, ErrInvalidInput
	}

	passwordHash, err := HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	var user pgrepo.UserRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		created, err := s.users.Create(txCtx, tx, email, passwordHash)
		if err != nil {
			if errors.Is(err, pgrepo.ErrEmailTaken) {
				return ErrEmailTaken
			}
			return err
		}
		user = created

		return s.profiles.Create(txCtx, tx, pgrepo.ProfileRecord{
			UserID:      user.ID,
			DisplayName: displayName,
			Birthdate:   input.Birthdate,
			Gender:      gender,
		})
	}); err != nil {
		return AuthResult{}, err
	}

	// Preferences default outside the tx; a retryable write, not part of
	// the registration invariant.
	if err := s.profiles.UpsertPreferences(ctx, pgrepo.PreferenceRecord{
		UserID:          user.ID,
		MinAge:          18,
		MaxAge:          99,
		PreferredGender: "all",
		MaxDistanceKM:   100,
	}); err != nil {
		return AuthResult{}, fmt.Errorf("seed preferences: %w", err)
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("auth dependencies are not configured")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user by email: %w", err)
	}
	if !user.IsActive {
		return AuthResult{}, ErrAccountDisabled
	}
	if !CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := s.users.TouchLastActive(ctx, user.ID); err != nil {
		return AuthResult{}, fmt.Errorf("touch last active: %w", err)
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return AuthResult{}, ErrAccountDisabled
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:        user.ID,
			Email:     user.Email,
			IsPremium: user.IsPremium,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Identity{}, ErrUnauthorized
		}
		return Identity{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID {
		return Identity{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return Identity{}, ErrUnauthorized
	}

	identity := Identity{UserID: claims.UserID, SID: claims.SID}
	if s.users != nil {
		user, err := s.users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return Identity{}, ErrUnauthorized
			}
			return Identity{}, fmt.Errorf("get user: %w", err)
		}
		if !user.IsActive {
			return Identity{}, ErrUnauthorized
		}
		identity.IsPremium = user.IsPremium
	}

	return identity, nil
}

func (s *Service) MeByID(ctx context.Context, userID int64) (Me, error) {
	if userID <= 0 {
		return Me{}, ErrInvalidInput
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Me{}, ErrUnauthorized
		}
		return Me{}, fmt.Errorf("get user: %w", err)
	}

	return Me{
		ID:        user.ID,
		Email:     user.Email,
		IsPremium: user.IsPremium,
	}, nil
}

func (s *Service) issueForUser(ctx context.Context, user pgrepo.UserRecord) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionExpiresAt := s.now().Add(s.cfg.RefreshTTL)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    user.ID,
		ExpiresAt: sessionExpiresAt,
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID, sessionID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:        user.ID,
			Email:     user.Email,
			IsPremium: user.IsPremium,
		},
	}, nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}

func validGender(gender string) bool {
	switch gender {
	case "male", "female", "non-binary", "other":
		return true
	}
	return false
}
