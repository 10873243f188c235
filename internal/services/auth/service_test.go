package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"

	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
	redrepo "github.com/sparklabs/spark/internal/repo/redis"
	authsvc "github.com/sparklabs/spark/internal/services/auth"
)

type userStoreStub struct {
	users map[string]pgrepo.UserRecord
}

func (s *userStoreStub) Create(context.Context, pgx.Tx, string, string) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{}, errors.New("not implemented")
}

func (s *userStoreStub) FindByEmail(_ context.Context, email string) (pgrepo.UserRecord, error) {
	user, ok := s.users[email]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *userStoreStub) GetByID(_ context.Context, userID int64) (pgrepo.UserRecord, error) {
	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
}

func (s *userStoreStub) TouchLastActive(context.Context, int64) error {
	return nil
}

func newAuthServiceForTest(t *testing.T, users *userStoreStub) (*authsvc.Service, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	sessions := redrepo.NewSessionRepo(client)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(authsvc.Dependencies{
		JWT:      jwtManager,
		Sessions: sessions,
		Users:    users,
	}, authsvc.Config{RefreshTTL: 45 * 24 * time.Hour})

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return svc, cleanup
}

func seededUsers(t *testing.T) *userStoreStub {
	t.Helper()

	hash, err := authsvc.HashPassword("Sunset99", 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	return &userStoreStub{users: map[string]pgrepo.UserRecord{
		"alice@example.com": {
			ID:           1001,
			Email:        "alice@example.com",
			PasswordHash: hash,
			IsActive:     true,
		},
	}}
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	ctx := context.Background()
	res, err := svc.Login(ctx, "Alice@Example.com", "Sunset99")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	if res.Me.ID != 1001 {
		t.Fatalf("unexpected me id: %d", res.Me.ID)
	}

	identity, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if identity.UserID != 1001 {
		t.Fatalf("unexpected identity user id: %d", identity.UserID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	_, err := svc.Login(context.Background(), "alice@example.com", "WrongPass1")
	if !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	_, err := svc.Login(context.Background(), "nobody@example.com", "Sunset99")
	if !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	users := seededUsers(t)
	user := users.users["alice@example.com"]
	user.IsActive = false
	users.users["alice@example.com"] = user

	svc, cleanup := newAuthServiceForTest(t, users)
	defer cleanup()

	_, err := svc.Login(context.Background(), "alice@example.com", "Sunset99")
	if !errors.Is(err, authsvc.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	ctx := context.Background()
	loginRes, err := svc.Login(ctx, "alice@example.com", "Sunset99")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshRes, err := svc.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}

	if _, err := svc.Refresh(ctx, loginRes.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected old refresh token to be rejected, got %v", err)
	}

	if _, err := svc.Refresh(ctx, refreshRes.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	ctx := context.Background()
	loginRes, err := svc.Login(ctx, "alice@example.com", "Sunset99")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	identity, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}

	if err := svc.Logout(ctx, identity.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t, seededUsers(t))
	defer cleanup()

	if _, err := svc.ValidateAccessToken(context.Background(), "not-a-jwt"); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
