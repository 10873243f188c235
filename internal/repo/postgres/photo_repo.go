package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPhotoNotFound = errors.New("photo not found")

type PhotoRecord struct {
	ID        int64
	UserID    int64
	URL       string
	ObjectKey string
	IsPrimary bool
	Position  int
	CreatedAt time.Time
}

type PhotoRepo struct {
	pool *pgxpool.Pool
}

func NewPhotoRepo(pool *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{pool: pool}
}

func (r *PhotoRepo) Insert(ctx context.Context, tx pgx.Tx, userID int64, url, objectKey string, isPrimary bool, position int) (int64, error) {
	if userID <= 0 || url == "" {
		return 0, fmt.Errorf("invalid photo payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO photos (
	user_id,
	url,
	object_key,
	is_primary,
	position,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id
`, userID, url, objectKey, isPrimary, position).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert photo: %w", err)
	}

	return id, nil
}

func (r *PhotoRepo) ListForUser(ctx context.Context, userID int64) ([]PhotoRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, url, object_key, is_primary, position, created_at
FROM photos
WHERE user_id = $1
ORDER BY is_primary DESC, position ASC, id ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var out []PhotoRecord
	for rows.Next() {
		var rec PhotoRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.URL,
			&rec.ObjectKey,
			&rec.IsPrimary,
			&rec.Position,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}

	return out, nil
}

func (r *PhotoRepo) CountForUser(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	err := tx.QueryRow(ctx, `
SELECT COUNT(*) FROM photos WHERE user_id = $1
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}

	return count, nil
}

// Get returns the photo only when it belongs to the given user.
func (r *PhotoRepo) Get(ctx context.Context, photoID, userID int64) (PhotoRecord, error) {
	if photoID <= 0 || userID <= 0 {
		return PhotoRecord{}, fmt.Errorf("invalid photo lookup payload")
	}
	if r.pool == nil {
		return PhotoRecord{}, ErrPhotoNotFound
	}

	var rec PhotoRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, url, object_key, is_primary, position, created_at
FROM photos
WHERE id = $1 AND user_id = $2
`, photoID, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.URL,
		&rec.ObjectKey,
		&rec.IsPrimary,
		&rec.Position,
		&rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return PhotoRecord{}, ErrPhotoNotFound
		}
		return PhotoRecord{}, fmt.Errorf("get photo: %w", err)
	}

	return rec, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, tx pgx.Tx, photoID, userID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
DELETE FROM photos WHERE id = $1 AND user_id = $2
`, photoID, userID)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}

	return nil
}

// SetPrimary clears the current primary flag and marks the given photo.
func (r *PhotoRepo) SetPrimary(ctx context.Context, tx pgx.Tx, photoID, userID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE photos SET is_primary = FALSE WHERE user_id = $1
`, userID); err != nil {
		return fmt.Errorf("clear primary photo: %w", err)
	}

	result, err := tx.Exec(ctx, `
UPDATE photos SET is_primary = TRUE WHERE id = $1 AND user_id = $2
`, photoID, userID)
	if err != nil {
		return fmt.Errorf("set primary photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPhotoNotFound
	}

	return nil
}
