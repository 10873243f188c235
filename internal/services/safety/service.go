package safety

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/enums"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrTargetNotFound = errors.New("target user not found")
	ErrNotBlocked     = errors.New("user is not blocked")
)

const maxReportDescription = 1000

type BlockStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) error
	Delete(ctx context.Context, blockerID, blockedID int64) (bool, error)
	Exists(ctx context.Context, userID, otherID int64) (bool, error)
}

type ReportStore interface {
	Create(ctx context.Context, tx pgx.Tx, reporterID, reportedID int64, reason, description string) (int64, error)
}

type MatchStore interface {
	DeactivateByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error)
}

type UserStore interface {
	GetActive(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Blocks  BlockStore
	Reports ReportStore
	Matches MatchStore
	Users   UserStore
}

type Service struct {
	blocks  BlockStore
	reports ReportStore
	matches MatchStore
	users   UserStore
	runTx   func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(deps Dependencies) *Service {
	return &Service{
		blocks:  deps.Blocks,
		reports: deps.Reports,
		matches: deps.Matches,
		users:   deps.Users,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Block records the block and deactivates any match between the pair in the
// same transaction. Blocking twice is a no-op.
func (s *Service) Block(ctx context.Context, userID, targetID int64) error {
	if err := validatePair(userID, targetID); err != nil {
		return err
	}

	if _, err := s.users.GetActive(ctx, targetID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrTargetNotFound
		}
		return fmt.Errorf("load target: %w", err)
	}

	return s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.blocks.Upsert(ctx, tx, userID, targetID); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
		if _, err := s.matches.DeactivateByUsers(ctx, tx, userID, targetID); err != nil {
			return fmt.Errorf("deactivate match: %w", err)
		}
		return nil
	})
}

// Unblock removes the block. Any match deactivated by the block stays
// inactive, the pair has to match again from scratch.
func (s *Service) Unblock(ctx context.Context, userID, targetID int64) error {
	if err := validatePair(userID, targetID); err != nil {
		return err
	}

	deleted, err := s.blocks.Delete(ctx, userID, targetID)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if !deleted {
		return ErrNotBlocked
	}

	return nil
}

func (s *Service) IsBlocked(ctx context.Context, userID, otherID int64) (bool, error) {
	if err := validatePair(userID, otherID); err != nil {
		return false, err
	}

	blocked, err := s.blocks.Exists(ctx, userID, otherID)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}

	return blocked, nil
}

// Report files a report and blocks the reported user in the same transaction.
func (s *Service) Report(ctx context.Context, reporterID, reportedID int64, reason, description string) (int64, error) {
	if err := validatePair(reporterID, reportedID); err != nil {
		return 0, err
	}
	if !enums.ReportReason(reason).Valid() {
		return 0, fmt.Errorf("%w: unknown report reason %q", ErrValidation, reason)
	}
	description = strings.TrimSpace(description)
	if len([]rune(description)) > maxReportDescription {
		return 0, fmt.Errorf("%w: description must be at most %d characters", ErrValidation, maxReportDescription)
	}

	if _, err := s.users.GetActive(ctx, reportedID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return 0, ErrTargetNotFound
		}
		return 0, fmt.Errorf("load reported user: %w", err)
	}

	var reportID int64
	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		id, err := s.reports.Create(ctx, tx, reporterID, reportedID, reason, description)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		reportID = id

		if err := s.blocks.Upsert(ctx, tx, reporterID, reportedID); err != nil {
			return fmt.Errorf("insert block: %w", err)
		}
		if _, err := s.matches.DeactivateByUsers(ctx, tx, reporterID, reportedID); err != nil {
			return fmt.Errorf("deactivate match: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return reportID, nil
}

func validatePair(userID, otherID int64) error {
	if userID <= 0 || otherID <= 0 {
		return fmt.Errorf("%w: user ids are required", ErrValidation)
	}
	if userID == otherID {
		return fmt.Errorf("%w: cannot target yourself", ErrValidation)
	}
	return nil
}
