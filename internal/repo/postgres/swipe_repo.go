package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSwipeNotFound = errors.New("swipe not found")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

type SwipeRecord struct {
	ID        int64
	SwiperID  int64
	SwipedID  int64
	Direction string
	CreatedAt time.Time
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// Upsert records a directional swipe. A later swipe on the same target
// replaces the earlier direction; there is no swipe history per pair.
func (r *SwipeRepo) Upsert(ctx context.Context, tx pgx.Tx, swiperID, swipedID int64, direction string, now time.Time) (SwipeRecord, error) {
	if swiperID <= 0 || swipedID <= 0 || strings.TrimSpace(direction) == "" {
		return SwipeRecord{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return SwipeRecord{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var rec SwipeRecord
	err := tx.QueryRow(ctx, `
INSERT INTO swipes (
	swiper_id,
	swiped_id,
	direction,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (swiper_id, swiped_id) DO UPDATE SET
	direction = EXCLUDED.direction,
	created_at = EXCLUDED.created_at
RETURNING id, swiper_id, swiped_id, direction, created_at
`, swiperID, swipedID, strings.ToLower(strings.TrimSpace(direction)), now.UTC()).Scan(
		&rec.ID,
		&rec.SwiperID,
		&rec.SwipedID,
		&rec.Direction,
		&rec.CreatedAt,
	)
	if err != nil {
		return SwipeRecord{}, fmt.Errorf("upsert swipe: %w", err)
	}

	return rec, nil
}

// HasPositive reports whether swiperID has a recorded like or superlike
// toward swipedID. Used for the reciprocal-like lookup on match detection.
func (r *SwipeRepo) HasPositive(ctx context.Context, tx pgx.Tx, swiperID, swipedID int64) (bool, error) {
	if swiperID <= 0 || swipedID <= 0 {
		return false, fmt.Errorf("invalid swipe lookup payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM swipes
WHERE swiper_id = $1 AND swiped_id = $2 AND direction IN ('like', 'superlike')
LIMIT 1
`, swiperID, swipedID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup reciprocal swipe: %w", err)
	}

	return true, nil
}

// CountSince counts the user's swipes recorded at or after the given instant,
// optionally narrowed to a single direction. This backs the daily quotas.
func (r *SwipeRepo) CountSince(ctx context.Context, tx pgx.Tx, swiperID int64, since time.Time, direction string) (int, error) {
	if swiperID <= 0 {
		return 0, fmt.Errorf("invalid swiper id")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	query := `
SELECT COUNT(*)
FROM swipes
WHERE swiper_id = $1 AND created_at >= $2
`
	args := []any{swiperID, since.UTC()}
	if strings.TrimSpace(direction) != "" {
		query += ` AND direction = $3`
		args = append(args, strings.ToLower(strings.TrimSpace(direction)))
	}

	var count int
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count swipes since: %w", err)
	}

	return count, nil
}

func (r *SwipeRepo) Get(ctx context.Context, swiperID, swipedID int64) (SwipeRecord, error) {
	if r.pool == nil {
		return SwipeRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if swiperID <= 0 || swipedID <= 0 {
		return SwipeRecord{}, fmt.Errorf("invalid swipe lookup payload")
	}

	var rec SwipeRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, swiper_id, swiped_id, direction, created_at
FROM swipes
WHERE swiper_id = $1 AND swiped_id = $2
`, swiperID, swipedID).Scan(
		&rec.ID,
		&rec.SwiperID,
		&rec.SwipedID,
		&rec.Direction,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SwipeRecord{}, ErrSwipeNotFound
		}
		return SwipeRecord{}, fmt.Errorf("get swipe: %w", err)
	}

	return rec, nil
}
