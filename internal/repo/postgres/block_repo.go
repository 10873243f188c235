package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Upsert(ctx context.Context, tx pgx.Tx, blockerID, blockedID int64) error {
	if blockerID <= 0 || blockedID <= 0 || blockerID == blockedID {
		return fmt.Errorf("invalid block payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO blocks (
	blocker_id,
	blocked_id,
	created_at
) VALUES ($1, $2, NOW())
ON CONFLICT (blocker_id, blocked_id) DO NOTHING
`, blockerID, blockedID); err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}

	return nil
}

func (r *BlockRepo) Delete(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	if blockerID <= 0 || blockedID <= 0 {
		return false, fmt.Errorf("invalid block delete payload")
	}
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM blocks
WHERE blocker_id = $1 AND blocked_id = $2
`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Exists reports whether either side has blocked the other.
func (r *BlockRepo) Exists(ctx context.Context, userID, otherID int64) (bool, error) {
	if userID <= 0 || otherID <= 0 {
		return false, fmt.Errorf("invalid block lookup payload")
	}
	if r.pool == nil {
		return false, nil
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM blocks
WHERE (blocker_id = $1 AND blocked_id = $2)
	OR (blocker_id = $2 AND blocked_id = $1)
LIMIT 1
`, userID, otherID).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("lookup block: %w", err)
	}

	return true, nil
}
