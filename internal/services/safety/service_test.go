package safety

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

type pair struct {
	a, b int64
}

type blockStoreFake struct {
	blocks map[pair]struct{}
}

func newBlockStoreFake() *blockStoreFake {
	return &blockStoreFake{blocks: map[pair]struct{}{}}
}

func (s *blockStoreFake) Upsert(_ context.Context, _ pgx.Tx, blockerID, blockedID int64) error {
	s.blocks[pair{blockerID, blockedID}] = struct{}{}
	return nil
}

func (s *blockStoreFake) Delete(_ context.Context, blockerID, blockedID int64) (bool, error) {
	if _, ok := s.blocks[pair{blockerID, blockedID}]; !ok {
		return false, nil
	}
	delete(s.blocks, pair{blockerID, blockedID})
	return true, nil
}

func (s *blockStoreFake) Exists(_ context.Context, userID, otherID int64) (bool, error) {
	if _, ok := s.blocks[pair{userID, otherID}]; ok {
		return true, nil
	}
	_, ok := s.blocks[pair{otherID, userID}]
	return ok, nil
}

type reportStoreFake struct {
	nextID int64

	lastReason      string
	lastDescription string
}

func (s *reportStoreFake) Create(_ context.Context, _ pgx.Tx, _, _ int64, reason, description string) (int64, error) {
	s.nextID++
	s.lastReason = reason
	s.lastDescription = description
	return s.nextID, nil
}

type matchStoreFake struct {
	deactivated []pair
}

func (s *matchStoreFake) DeactivateByUsers(_ context.Context, _ pgx.Tx, userID, targetID int64) (bool, error) {
	s.deactivated = append(s.deactivated, pair{userID, targetID})
	return true, nil
}

type userStoreFake struct {
	active map[int64]bool
}

func (s *userStoreFake) GetActive(_ context.Context, userID int64) (pgrepo.UserRecord, error) {
	if !s.active[userID] {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return pgrepo.UserRecord{ID: userID, IsActive: true}, nil
}

type safetyFixture struct {
	svc     *Service
	blocks  *blockStoreFake
	reports *reportStoreFake
	matches *matchStoreFake
}

func newSafetyFixture() *safetyFixture {
	blocks := newBlockStoreFake()
	reports := &reportStoreFake{}
	matches := &matchStoreFake{}
	users := &userStoreFake{active: map[int64]bool{1: true, 2: true}}

	svc := &Service{
		blocks:  blocks,
		reports: reports,
		matches: matches,
		users:   users,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return fn(ctx, nil)
		},
	}

	return &safetyFixture{svc: svc, blocks: blocks, reports: reports, matches: matches}
}

func TestBlockDeactivatesMatch(t *testing.T) {
	f := newSafetyFixture()

	if err := f.svc.Block(context.Background(), 1, 2); err != nil {
		t.Fatalf("block: %v", err)
	}

	blocked, err := f.svc.IsBlocked(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("is blocked: %v", err)
	}
	if !blocked {
		t.Fatal("expected block visible from either side")
	}
	if len(f.matches.deactivated) != 1 {
		t.Fatalf("expected match deactivation, got %v", f.matches.deactivated)
	}
}

func TestBlockValidation(t *testing.T) {
	f := newSafetyFixture()

	if err := f.svc.Block(context.Background(), 1, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self block, got %v", err)
	}
	if err := f.svc.Block(context.Background(), 1, 99); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestUnblock(t *testing.T) {
	f := newSafetyFixture()

	if err := f.svc.Block(context.Background(), 1, 2); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := f.svc.Unblock(context.Background(), 1, 2); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	blocked, _ := f.svc.IsBlocked(context.Background(), 1, 2)
	if blocked {
		t.Fatal("expected block removed")
	}

	if err := f.svc.Unblock(context.Background(), 1, 2); !errors.Is(err, ErrNotBlocked) {
		t.Fatalf("expected ErrNotBlocked, got %v", err)
	}
}

func TestReportBlocksReportedUser(t *testing.T) {
	f := newSafetyFixture()

	id, err := f.svc.Report(context.Background(), 1, 2, "harassment", "  sent abusive messages  ")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected report id 1, got %d", id)
	}
	if f.reports.lastReason != "harassment" || f.reports.lastDescription != "sent abusive messages" {
		t.Fatalf("unexpected report payload: %q %q", f.reports.lastReason, f.reports.lastDescription)
	}

	blocked, _ := f.svc.IsBlocked(context.Background(), 1, 2)
	if !blocked {
		t.Fatal("expected reporter to block the reported user")
	}
	if len(f.matches.deactivated) != 1 {
		t.Fatal("expected match deactivated on report")
	}
}

func TestReportValidation(t *testing.T) {
	f := newSafetyFixture()

	if _, err := f.svc.Report(context.Background(), 1, 2, "because", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown reason, got %v", err)
	}
	long := strings.Repeat("x", maxReportDescription+1)
	if _, err := f.svc.Report(context.Background(), 1, 2, "spam", long); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for long description, got %v", err)
	}
	if _, err := f.svc.Report(context.Background(), 1, 99, "spam", ""); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}
