package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparklabs/spark/internal/domain/rules"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepo struct {
	pool *pgxpool.Pool
}

type MatchRecord struct {
	ID        int64
	UserAID   int64
	UserBID   int64
	IsActive  bool
	MatchedAt time.Time
}

// PeerID returns the other participant for the given caller, or 0 when the
// caller is not part of the match.
func (m MatchRecord) PeerID(userID int64) int64 {
	switch userID {
	case m.UserAID:
		return m.UserBID
	case m.UserBID:
		return m.UserAID
	default:
		return 0
	}
}

func (m MatchRecord) HasParticipant(userID int64) bool {
	return userID == m.UserAID || userID == m.UserBID
}

type MatchListRecord struct {
	ID            int64
	PeerID        int64
	PeerName      string
	PeerAge       int
	PeerCity      string
	PeerPhotoURL  string
	PeerOnlineAt  time.Time
	MatchedAt     time.Time
	LastContent   *string
	LastSenderID  *int64
	LastCreatedAt *time.Time
	LastIsRead    *bool
	UnreadCount   int
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// CreateIfAbsent inserts the match row for the canonical ordering of the pair.
// The uniqueness constraint on (user_a_id, user_b_id) is the sole arbiter of
// concurrent mutual likes: the loser of the insert race reads the winner's row
// back and reports created=false.
func (r *MatchRepo) CreateIfAbsent(ctx context.Context, tx pgx.Tx, userID, targetID int64) (int64, bool, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return 0, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return 0, false, fmt.Errorf("transaction is required")
	}

	userA, userB := rules.CanonicalPair(userID, targetID)

	var matchID int64
	err := tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	is_active,
	matched_at
) VALUES ($1, $2, TRUE, NOW())
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
RETURNING id
`, userA, userB).Scan(&matchID)
	if err == nil {
		return matchID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("create match: %w", err)
	}

	// Lost the race or the pair matched before; resolve to the existing row.
	err = tx.QueryRow(ctx, `
SELECT id
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, userA, userB).Scan(&matchID)
	if err != nil {
		return 0, false, fmt.Errorf("resolve existing match: %w", err)
	}

	return matchID, false, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID int64) (MatchRecord, error) {
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if matchID <= 0 {
		return MatchRecord{}, fmt.Errorf("invalid match id")
	}

	var rec MatchRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, is_active, matched_at
FROM matches
WHERE id = $1
`, matchID).Scan(&rec.ID, &rec.UserAID, &rec.UserBID, &rec.IsActive, &rec.MatchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("get match: %w", err)
	}

	return rec, nil
}

// ListActiveForUser returns active matches newest-first with the peer's
// profile snapshot, last message, and the caller's unread count.
func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID int64, limit int) ([]MatchListRecord, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []MatchListRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	peer.id,
	COALESCE(p.display_name, ''),
	COALESCE(DATE_PART('year', AGE(NOW(), p.birthdate::timestamp))::int, 0),
	COALESCE(p.city, ''),
	COALESCE(ph.url, ''),
	peer.last_active,
	m.matched_at,
	lm.content,
	lm.sender_id,
	lm.created_at,
	lm.is_read,
	COALESCE(un.unread, 0)
FROM matches m
JOIN users peer ON peer.id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
LEFT JOIN profiles p ON p.user_id = peer.id
LEFT JOIN LATERAL (
	SELECT url FROM photos
	WHERE user_id = peer.id AND is_primary
	ORDER BY position
	LIMIT 1
) ph ON TRUE
LEFT JOIN LATERAL (
	SELECT content, sender_id, created_at, is_read
	FROM messages
	WHERE match_id = m.id
	ORDER BY created_at DESC, id DESC
	LIMIT 1
) lm ON TRUE
LEFT JOIN LATERAL (
	SELECT COUNT(*)::int AS unread
	FROM messages
	WHERE match_id = m.id AND sender_id <> $1 AND NOT is_read
) un ON TRUE
WHERE
	(m.user_a_id = $1 OR m.user_b_id = $1)
	AND m.is_active
ORDER BY m.matched_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchListRecord, 0, limit)
	for rows.Next() {
		var item MatchListRecord
		if err := rows.Scan(
			&item.ID,
			&item.PeerID,
			&item.PeerName,
			&item.PeerAge,
			&item.PeerCity,
			&item.PeerPhotoURL,
			&item.PeerOnlineAt,
			&item.MatchedAt,
			&item.LastContent,
			&item.LastSenderID,
			&item.LastCreatedAt,
			&item.LastIsRead,
			&item.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan active match: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active matches: %w", rows.Err())
	}

	return items, nil
}

// ListActivePeerIDs returns the ids of everyone the user holds an active
// match with. The realtime hub uses this for online-status fan-out.
func (r *MatchRepo) ListActivePeerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return []int64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END
FROM matches
WHERE (user_a_id = $1 OR user_b_id = $1) AND is_active
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list match peer ids: %w", err)
	}
	defer rows.Close()

	var peers []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match peer id: %w", err)
		}
		peers = append(peers, id)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate match peer ids: %w", rows.Err())
	}

	return peers, nil
}

// Deactivate soft-deletes a match. Message history stays referenced, so the
// row is never hard-deleted.
func (r *MatchRepo) Deactivate(ctx context.Context, tx pgx.Tx, matchID int64) (bool, error) {
	if matchID <= 0 {
		return false, fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE matches
SET is_active = FALSE
WHERE id = $1 AND is_active
`, matchID)
	if err != nil {
		return false, fmt.Errorf("deactivate match: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *MatchRepo) DeactivateByUsers(ctx context.Context, tx pgx.Tx, userID, targetID int64) (bool, error) {
	if userID <= 0 || targetID <= 0 {
		return false, fmt.Errorf("invalid match deactivate payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	userA, userB := rules.CanonicalPair(userID, targetID)
	result, err := tx.Exec(ctx, `
UPDATE matches
SET is_active = FALSE
WHERE user_a_id = $1 AND user_b_id = $2 AND is_active
`, userA, userB)
	if err != nil {
		return false, fmt.Errorf("deactivate match by users: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
