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

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

type ProfileRecord struct {
	UserID      int64
	DisplayName string
	Birthdate   time.Time
	Gender      string
	Bio         string
	City        string
	Occupation  string
	Education   string
	HeightCM    int
	LookingFor  string
	UpdatedAt   time.Time
}

type PreferenceRecord struct {
	UserID          int64
	MinAge          int
	MaxAge          int
	PreferredGender string
	MaxDistanceKM   int
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, tx pgx.Tx, profile ProfileRecord) error {
	if profile.UserID <= 0 || strings.TrimSpace(profile.DisplayName) == "" {
		return fmt.Errorf("invalid profile payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO profiles (
	user_id,
	display_name,
	birthdate,
	gender,
	bio,
	city,
	occupation,
	education,
	height_cm,
	looking_for,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
`, profile.UserID,
		strings.TrimSpace(profile.DisplayName),
		profile.Birthdate,
		strings.ToLower(strings.TrimSpace(profile.Gender)),
		profile.Bio,
		profile.City,
		profile.Occupation,
		profile.Education,
		profile.HeightCM,
		profile.LookingFor,
	); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID int64) (ProfileRecord, error) {
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}

	var rec ProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	display_name,
	COALESCE(birthdate, '1970-01-01'::date),
	COALESCE(gender, ''),
	COALESCE(bio, ''),
	COALESCE(city, ''),
	COALESCE(occupation, ''),
	COALESCE(education, ''),
	COALESCE(height_cm, 0),
	COALESCE(looking_for, ''),
	updated_at
FROM profiles
WHERE user_id = $1
`, userID).Scan(
		&rec.UserID,
		&rec.DisplayName,
		&rec.Birthdate,
		&rec.Gender,
		&rec.Bio,
		&rec.City,
		&rec.Occupation,
		&rec.Education,
		&rec.HeightCM,
		&rec.LookingFor,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return rec, nil
}

// DisplayName is the cheap lookup used for notification bodies.
func (r *ProfileRepo) DisplayName(ctx context.Context, tx pgx.Tx, userID int64) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return "", fmt.Errorf("transaction is required")
	}

	var name string
	err := tx.QueryRow(ctx, `
SELECT COALESCE(display_name, '')
FROM profiles
WHERE user_id = $1
`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get display name: %w", err)
	}

	return name, nil
}

func (r *ProfileRepo) Update(ctx context.Context, profile ProfileRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if profile.UserID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE profiles
SET
	display_name = $2,
	bio = $3,
	city = $4,
	occupation = $5,
	education = $6,
	height_cm = $7,
	looking_for = $8,
	updated_at = NOW()
WHERE user_id = $1
`, profile.UserID,
		strings.TrimSpace(profile.DisplayName),
		profile.Bio,
		profile.City,
		profile.Occupation,
		profile.Education,
		profile.HeightCM,
		profile.LookingFor,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

func (r *ProfileRepo) GetPreferences(ctx context.Context, userID int64) (PreferenceRecord, error) {
	if r.pool == nil {
		return PreferenceRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return PreferenceRecord{}, fmt.Errorf("invalid user id")
	}

	var rec PreferenceRecord
	err := r.pool.QueryRow(ctx, `
SELECT user_id, min_age, max_age, preferred_gender, max_distance_km
FROM preferences
WHERE user_id = $1
`, userID).Scan(&rec.UserID, &rec.MinAge, &rec.MaxAge, &rec.PreferredGender, &rec.MaxDistanceKM)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PreferenceRecord{}, ErrProfileNotFound
		}
		return PreferenceRecord{}, fmt.Errorf("get preferences: %w", err)
	}

	return rec, nil
}

func (r *ProfileRepo) UpsertPreferences(ctx context.Context, pref PreferenceRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if pref.UserID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO preferences (
	user_id,
	min_age,
	max_age,
	preferred_gender,
	max_distance_km,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	min_age = EXCLUDED.min_age,
	max_age = EXCLUDED.max_age,
	preferred_gender = EXCLUDED.preferred_gender,
	max_distance_km = EXCLUDED.max_distance_km,
	updated_at = NOW()
`, pref.UserID, pref.MinAge, pref.MaxAge, strings.ToLower(strings.TrimSpace(pref.PreferredGender)), pref.MaxDistanceKM); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}

	return nil
}

func (r *ProfileRepo) ListInterests(ctx context.Context) ([]InterestRecord, error) {
	if r.pool == nil {
		return []InterestRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, category
FROM interests
ORDER BY category, name
`)
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	defer rows.Close()

	var items []InterestRecord
	for rows.Next() {
		var rec InterestRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Category); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate interests: %w", rows.Err())
	}

	return items, nil
}

type InterestRecord struct {
	ID       int64
	Name     string
	Category string
}

func (r *ProfileRepo) ListUserInterests(ctx context.Context, userID int64) ([]InterestRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return []InterestRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT i.id, i.name, i.category
FROM user_interests ui
JOIN interests i ON i.id = ui.interest_id
WHERE ui.user_id = $1
ORDER BY i.name
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user interests: %w", err)
	}
	defer rows.Close()

	var items []InterestRecord
	for rows.Next() {
		var rec InterestRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Category); err != nil {
			return nil, fmt.Errorf("scan user interest: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate user interests: %w", rows.Err())
	}

	return items, nil
}

func (r *ProfileRepo) SetUserInterests(ctx context.Context, userID int64, interestIDs []int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
DELETE FROM user_interests
WHERE user_id = $1
`, userID); err != nil {
			return fmt.Errorf("clear user interests: %w", err)
		}

		for _, id := range interestIDs {
			if id <= 0 {
				continue
			}
			if _, err := tx.Exec(txCtx, `
INSERT INTO user_interests (user_id, interest_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, userID, id); err != nil {
				return fmt.Errorf("insert user interest: %w", err)
			}
		}

		return nil
	})
}
