package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CandidateRecord struct {
	UserID      int64
	DisplayName string
	Birthdate   time.Time
	Gender      string
	Bio         string
	City        string
	Occupation  string
	PhotoURLs   []string
	Interests   []string
	LastActive  time.Time
}

type DiscoverRepo struct {
	pool *pgxpool.Pool
}

func NewDiscoverRepo(pool *pgxpool.Pool) *DiscoverRepo {
	return &DiscoverRepo{pool: pool}
}

// ListCandidates returns active profiles the viewer has not swiped on yet,
// filtered by the viewer's preferences and mutual blocks. Premium profiles
// surface first, then most recently active.
func (r *DiscoverRepo) ListCandidates(ctx context.Context, viewerID int64, minAge, maxAge int, preferredGender string, limit, offset int) ([]CandidateRecord, error) {
	if viewerID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit")
	}
	if offset < 0 {
		offset = 0
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	p.display_name,
	p.birthdate,
	p.gender,
	COALESCE(p.bio, ''),
	COALESCE(p.city, ''),
	COALESCE(p.occupation, ''),
	COALESCE(ph.urls, '{}'),
	COALESCE(it.names, '{}'),
	u.last_active
FROM users u
JOIN profiles p ON p.user_id = u.id
LEFT JOIN LATERAL (
	SELECT array_agg(url ORDER BY is_primary DESC, position ASC) AS urls
	FROM photos
	WHERE user_id = u.id
) ph ON TRUE
LEFT JOIN LATERAL (
	SELECT array_agg(i.name ORDER BY i.name) AS names
	FROM user_interests ui
	JOIN interests i ON i.id = ui.interest_id
	WHERE ui.user_id = u.id
) it ON TRUE
WHERE u.id <> $1
	AND u.is_active = TRUE
	AND ($4 = 'all' OR p.gender = $4)
	AND date_part('year', age(p.birthdate)) BETWEEN $2 AND $3
	AND NOT EXISTS (
		SELECT 1 FROM swipes s
		WHERE s.swiper_id = $1 AND s.swiped_id = u.id
	)
	AND NOT EXISTS (
		SELECT 1 FROM blocks b
		WHERE (b.blocker_id = $1 AND b.blocked_id = u.id)
			OR (b.blocker_id = u.id AND b.blocked_id = $1)
	)
ORDER BY u.is_premium DESC, u.last_active DESC
LIMIT $5 OFFSET $6
`, viewerID, minAge, maxAge, preferredGender, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateRecord
	for rows.Next() {
		var rec CandidateRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.DisplayName,
			&rec.Birthdate,
			&rec.Gender,
			&rec.Bio,
			&rec.City,
			&rec.Occupation,
			&rec.PhotoURLs,
			&rec.Interests,
			&rec.LastActive,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return out, nil
}
