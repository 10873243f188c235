package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
)

func newSessionRepoForTest(t *testing.T) (*SessionRepo, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := NewClient(mini.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionRepo(client), mini
}

func TestSessionRoundTrip(t *testing.T) {
	repo, _ := newSessionRepoForTest(t)
	ctx := context.Background()

	record := authsvc.SessionRecord{
		SID:       "sid-1",
		UserID:    7,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	if err := repo.Create(ctx, record, "refresh-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	bySID, err := repo.GetSession(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get by sid: %v", err)
	}
	if bySID.UserID != 7 || bySID.SID != "sid-1" {
		t.Fatalf("unexpected session: %+v", bySID)
	}

	byToken, err := repo.GetByRefreshToken(ctx, "refresh-1")
	if err != nil {
		t.Fatalf("get by refresh: %v", err)
	}
	if byToken.UserID != 7 || byToken.SID != "sid-1" {
		t.Fatalf("unexpected session: %+v", byToken)
	}
}

func TestRotateRefreshRetiresOldToken(t *testing.T) {
	repo, _ := newSessionRepoForTest(t)
	ctx := context.Background()

	record := authsvc.SessionRecord{
		SID:       "sid-1",
		UserID:    7,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	if err := repo.Create(ctx, record, "refresh-old"); err != nil {
		t.Fatalf("create: %v", err)
	}

	newExpiry := time.Now().Add(2 * time.Hour).UTC()
	if err := repo.RotateRefresh(ctx, "sid-1", "refresh-old", "refresh-new", newExpiry); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	if _, err := repo.GetByRefreshToken(ctx, "refresh-old"); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("old token: expected ErrRefreshNotFound, got %v", err)
	}
	rotated, err := repo.GetByRefreshToken(ctx, "refresh-new")
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if rotated.SID != "sid-1" || rotated.UserID != 7 {
		t.Fatalf("unexpected rotated session: %+v", rotated)
	}

	// Rotation pinned to a different sid must not go through.
	if err := repo.RotateRefresh(ctx, "sid-other", "refresh-new", "refresh-x", newExpiry); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("sid mismatch: expected ErrRefreshNotFound, got %v", err)
	}
}

func TestDeleteSessionInvalidatesBothLookups(t *testing.T) {
	repo, _ := newSessionRepoForTest(t)
	ctx := context.Background()

	record := authsvc.SessionRecord{
		SID:       "sid-1",
		UserID:    7,
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}
	if err := repo.Create(ctx, record, "refresh-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeleteSession(ctx, "sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.GetSession(ctx, "sid-1"); !errors.Is(err, authsvc.ErrSessionNotFound) {
		t.Fatalf("sid lookup: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := repo.GetByRefreshToken(ctx, "refresh-1"); !errors.Is(err, authsvc.ErrRefreshNotFound) {
		t.Fatalf("refresh lookup: expected ErrRefreshNotFound, got %v", err)
	}
}

func TestDeleteAllForUserDropsEverySession(t *testing.T) {
	repo, _ := newSessionRepoForTest(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC()
	for _, sid := range []string{"sid-a", "sid-b"} {
		record := authsvc.SessionRecord{SID: sid, UserID: 7, ExpiresAt: expires}
		if err := repo.Create(ctx, record, "refresh-"+sid); err != nil {
			t.Fatalf("create %s: %v", sid, err)
		}
	}

	if err := repo.DeleteAllForUser(ctx, 7); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	for _, sid := range []string{"sid-a", "sid-b"} {
		if _, err := repo.GetSession(ctx, sid); !errors.Is(err, authsvc.ErrSessionNotFound) {
			t.Fatalf("%s still resolvable: %v", sid, err)
		}
	}
}
