package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/enums"
	"github.com/sparklabs/spark/internal/domain/rules"
	pgrepo "github.com/sparklabs/spark/internal/repo/postgres"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrTargetNotFound        = errors.New("target user not found")
	ErrDailyLimitReached     = errors.New("daily swipe limit reached")
	ErrSuperlikeLimitReached = errors.New("daily superlike limit reached")
)

// TooFastError is returned when the burst limiter rejects a premium swipe.
type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return fmt.Sprintf("too many swipes, retry after %d seconds", e.RetryAfterSec)
}

type SwipeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, swiperID, swipedID int64, direction string, now time.Time) (pgrepo.SwipeRecord, error)
	HasPositive(ctx context.Context, tx pgx.Tx, swiperID, swipedID int64) (bool, error)
	CountSince(ctx context.Context, tx pgx.Tx, swiperID int64, since time.Time, direction string) (int, error)
}

type MatchStore interface {
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, userID, targetID int64) (int64, bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
	GetActive(ctx context.Context, userID int64) (pgrepo.UserRecord, error)
}

type NameStore interface {
	DisplayName(ctx context.Context, tx pgx.Tx, userID int64) (string, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, tx pgx.Tx, userID int64, kind, title, body string, referenceID int64) error
}

type RateLimiter interface {
	AllowSwipe(ctx context.Context, userID int64) (int64, bool, error)
}

type Config struct {
	FreeSwipesPerDay     int
	FreeSuperlikesPerDay int
	DefaultTimezone      string
}

type Result struct {
	SwipeID   int64
	Direction string
	IsMatch   bool
	MatchID   *int64
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	SwipeStore    SwipeStore
	MatchStore    MatchStore
	UserStore     UserStore
	NameStore     NameStore
	Notifications NotificationStore
	RateLimiter   RateLimiter
}

type Service struct {
	swipes        SwipeStore
	matches       MatchStore
	users         UserStore
	names         NameStore
	notifications NotificationStore
	rateLimiter   RateLimiter
	cfg           Config
	runTx         func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now           func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.FreeSwipesPerDay <= 0 {
		cfg.FreeSwipesPerDay = rules.FreeSwipesPerDay
	}
	if cfg.FreeSuperlikesPerDay <= 0 {
		cfg.FreeSuperlikesPerDay = rules.FreeSuperlikesPerDay
	}
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}

	return &Service{
		swipes:        deps.SwipeStore,
		matches:       deps.MatchStore,
		users:         deps.UserStore,
		names:         deps.NameStore,
		notifications: deps.Notifications,
		rateLimiter:   deps.RateLimiter,
		cfg:           cfg,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
		now: time.Now,
	}
}

// Swipe records a directional action on the target and reports whether it
// completed a mutual match. Repeating a swipe replaces the previous row and,
// on an already-matched pair, re-reports the existing match without creating
// duplicate notifications.
func (s *Service) Swipe(ctx context.Context, userID, targetID int64, direction, timezone string) (Result, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return Result{}, ErrValidation
	}

	dir := enums.SwipeDirection(strings.ToLower(strings.TrimSpace(direction)))
	if !dir.Valid() {
		return Result{}, ErrValidation
	}

	if s.swipes == nil || s.matches == nil || s.users == nil || s.notifications == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}

	if _, err := s.users.GetActive(ctx, targetID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Result{}, ErrTargetNotFound
		}
		return Result{}, fmt.Errorf("get target user: %w", err)
	}

	swiper, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Result{}, ErrValidation
		}
		return Result{}, fmt.Errorf("get swiper: %w", err)
	}

	if swiper.IsPremium && s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowSwipe(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("apply premium rate limiter: %w", err)
		}
		if !allowed {
			return Result{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	now := s.now().UTC()
	loc := s.resolveTimezone(timezone)
	dayStart := rules.DayStart(now, loc)

	result := Result{Direction: string(dir)}
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		// Premium skips both daily quotas, the burst limiter above is its
		// only throttle.
		if !swiper.IsPremium {
			total, err := s.swipes.CountSince(txCtx, tx, userID, dayStart, "")
			if err != nil {
				return err
			}
			if total >= s.cfg.FreeSwipesPerDay {
				return ErrDailyLimitReached
			}

			if dir == enums.SwipeDirectionSuperlike {
				superlikes, err := s.swipes.CountSince(txCtx, tx, userID, dayStart, string(enums.SwipeDirectionSuperlike))
				if err != nil {
					return err
				}
				if superlikes >= s.cfg.FreeSuperlikesPerDay {
					return ErrSuperlikeLimitReached
				}
			}
		}

		swipe, err := s.swipes.Upsert(txCtx, tx, userID, targetID, string(dir), now)
		if err != nil {
			return err
		}
		result.SwipeID = swipe.ID

		if !dir.Positive() {
			return nil
		}

		reciprocal, err := s.swipes.HasPositive(txCtx, tx, targetID, userID)
		if err != nil {
			return err
		}
		if !reciprocal {
			return nil
		}

		matchID, created, err := s.matches.CreateIfAbsent(txCtx, tx, userID, targetID)
		if err != nil {
			return err
		}
		result.IsMatch = true
		result.MatchID = &matchID

		if created {
			return s.notifyMatched(txCtx, tx, userID, targetID, matchID)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	return result, nil
}

// Remaining reports how many free swipes and superlikes are left today.
type QuotaSnapshot struct {
	SwipesRemaining     int
	SuperlikesRemaining int
	Unlimited           bool
	ResetsAt            time.Time
}

func (s *Service) Quota(ctx context.Context, userID int64, timezone string) (QuotaSnapshot, error) {
	if userID <= 0 {
		return QuotaSnapshot{}, ErrValidation
	}
	if s.users == nil || s.swipes == nil {
		return QuotaSnapshot{}, fmt.Errorf("swipe dependencies are not configured")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return QuotaSnapshot{}, fmt.Errorf("get user: %w", err)
	}

	now := s.now().UTC()
	loc := s.resolveTimezone(timezone)
	dayStart := rules.DayStart(now, loc)

	snapshot := QuotaSnapshot{
		Unlimited: rules.UnlimitedSwipesForPremium(user.IsPremium),
		ResetsAt:  rules.NextResetAt(now, loc),
	}

	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		total, err := s.swipes.CountSince(txCtx, tx, userID, dayStart, "")
		if err != nil {
			return err
		}
		superlikes, err := s.swipes.CountSince(txCtx, tx, userID, dayStart, string(enums.SwipeDirectionSuperlike))
		if err != nil {
			return err
		}

		snapshot.SwipesRemaining = clampRemaining(s.cfg.FreeSwipesPerDay - total)
		snapshot.SuperlikesRemaining = clampRemaining(s.cfg.FreeSuperlikesPerDay - superlikes)
		return nil
	}); err != nil {
		return QuotaSnapshot{}, err
	}

	return snapshot, nil
}

func (s *Service) notifyMatched(ctx context.Context, tx pgx.Tx, userID, targetID, matchID int64) error {
	userName := "Someone"
	targetName := "Someone"

	if s.names != nil {
		if name, err := s.names.DisplayName(ctx, tx, userID); err == nil && name != "" {
			userName = name
		}
		if name, err := s.names.DisplayName(ctx, tx, targetID); err == nil && name != "" {
			targetName = name
		}
	}

	kind := string(enums.NotificationKindMatch)
	if err := s.notifications.Insert(ctx, tx, userID, kind, "New Match!",
		fmt.Sprintf("You and %s liked each other!", targetName), matchID); err != nil {
		return fmt.Errorf("insert swiper match notification: %w", err)
	}
	if err := s.notifications.Insert(ctx, tx, targetID, kind, "New Match!",
		fmt.Sprintf("You and %s liked each other!", userName), matchID); err != nil {
		return fmt.Errorf("insert target match notification: %w", err)
	}
	return nil
}

func (s *Service) resolveTimezone(timezone string) *time.Location {
	name := strings.TrimSpace(timezone)
	if name == "" {
		name = s.cfg.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func clampRemaining(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
