package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

type NotificationRecord struct {
	ID          int64
	UserID      int64
	Kind        string
	Title       string
	Body        string
	ReferenceID int64
	IsRead      bool
	CreatedAt   time.Time
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Insert writes one notification record. Callers pass the tx of the operation
// that produced the event so the record lands in the same atomic unit.
func (r *NotificationRepo) Insert(ctx context.Context, tx pgx.Tx, userID int64, kind, title, body string, referenceID int64) error {
	if userID <= 0 || strings.TrimSpace(kind) == "" {
		return fmt.Errorf("invalid notification payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO notifications (
	user_id,
	kind,
	title,
	body,
	reference_id,
	is_read,
	created_at
) VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
`, userID, strings.TrimSpace(kind), title, body, referenceID); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID int64, limit int, unreadOnly bool) ([]NotificationRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []NotificationRecord{}, nil
	}

	query := `
SELECT id, user_id, kind, title, body, reference_id, is_read, created_at
FROM notifications
WHERE user_id = $1
`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]NotificationRecord, 0, limit)
	for rows.Next() {
		var rec NotificationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Kind,
			&rec.Title,
			&rec.Body,
			&rec.ReferenceID,
			&rec.IsRead,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate notifications: %w", rows.Err())
	}

	return items, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE notifications
SET is_read = TRUE
WHERE user_id = $1 AND NOT is_read
`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}
