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

var ErrMessageNotFound = errors.New("message not found")

type MessageRepo struct {
	pool *pgxpool.Pool
}

type MessageRecord struct {
	ID        int64
	MatchID   int64
	SenderID  int64
	Content   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert appends one message to the match ledger. Content is immutable after
// this point; only is_read ever changes.
func (r *MessageRepo) Insert(ctx context.Context, tx pgx.Tx, matchID, senderID int64, content, msgType string) (MessageRecord, error) {
	if matchID <= 0 || senderID <= 0 || content == "" || strings.TrimSpace(msgType) == "" {
		return MessageRecord{}, fmt.Errorf("invalid message payload")
	}
	if tx == nil {
		return MessageRecord{}, fmt.Errorf("transaction is required")
	}

	var rec MessageRecord
	err := tx.QueryRow(ctx, `
INSERT INTO messages (
	match_id,
	sender_id,
	content,
	message_type,
	is_read,
	created_at
) VALUES ($1, $2, $3, $4, FALSE, NOW())
RETURNING id, match_id, sender_id, content, message_type, is_read, created_at
`, matchID, senderID, content, strings.ToLower(strings.TrimSpace(msgType))).Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.SenderID,
		&rec.Content,
		&rec.Type,
		&rec.IsRead,
		&rec.CreatedAt,
	)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("insert message: %w", err)
	}

	return rec, nil
}

// ListBefore pages the ledger newest-first; before is an exclusive upper
// bound, ties inside one timestamp break by insertion order (id).
func (r *MessageRepo) ListBefore(ctx context.Context, matchID int64, before *time.Time, limit int) ([]MessageRecord, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("invalid match id")
	}
	if limit <= 0 {
		limit = 50
	}
	if r.pool == nil {
		return []MessageRecord{}, nil
	}

	query := `
SELECT id, match_id, sender_id, content, message_type, is_read, created_at
FROM messages
WHERE match_id = $1
`
	args := []any{matchID}
	if before != nil {
		query += ` AND created_at < $2`
		args = append(args, before.UTC())
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MatchID,
			&rec.SenderID,
			&rec.Content,
			&rec.Type,
			&rec.IsRead,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, rec)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return items, nil
}

// MarkReadFromPeer flips every unread message NOT sent by readerID to read
// and returns how many rows changed. The reader's own messages are untouched.
func (r *MessageRepo) MarkReadFromPeer(ctx context.Context, matchID, readerID int64) (int64, error) {
	if matchID <= 0 || readerID <= 0 {
		return 0, fmt.Errorf("invalid mark read payload")
	}
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET is_read = TRUE
WHERE match_id = $1 AND sender_id <> $2 AND NOT is_read
`, matchID, readerID)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *MessageRepo) CountUnread(ctx context.Context, matchID, userID int64) (int, error) {
	if matchID <= 0 || userID <= 0 {
		return 0, fmt.Errorf("invalid unread count payload")
	}
	if r.pool == nil {
		return 0, nil
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM messages
WHERE match_id = $1 AND sender_id <> $2 AND NOT is_read
`, matchID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}

	return count, nil
}
