package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
)

// Session state lives entirely in redis. Each session is reachable two
// ways: by sid (access-token validation) and by refresh token (rotation).
// A per-user set of sids backs logout-all.
const (
	keySession      = "auth:session:"       // hash: uid, exp
	keyRefresh      = "auth:refresh:"       // hash: uid, sid, exp
	keySessionToken = "auth:session_token:" // string: the sid's current refresh token
	keyUserSessions = "auth:user_sessions:" // set of sids
)

type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

// Create writes every key of a fresh session in one MULTI/EXEC pipeline,
// all sharing the session's TTL.
func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	pipe := r.client.TxPipeline()
	writeSession(ctx, pipe, session, refreshToken)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create redis session: %w", err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	hash, err := r.client.HGetAll(ctx, keySession+sid).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get session hash: %w", err)
	}
	if len(hash) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}

	session, err := recordFromHash(hash)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	session.SID = sid
	return session, nil
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	hash, err := r.client.HGetAll(ctx, keyRefresh+refreshToken).Result()
	if err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("get refresh hash: %w", err)
	}
	if len(hash) == 0 {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}

	session, err := recordFromHash(hash)
	if err != nil {
		return authsvc.SessionRecord{}, err
	}
	session.SID = strings.TrimSpace(hash["sid"])
	if session.SID == "" {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return session, nil
}

// RotateRefresh retires the old token and rewrites the session keys with
// the new token and lifetime. The sid argument, when set, pins the
// rotation to the session the caller authenticated as.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	session, err := r.GetByRefreshToken(ctx, oldRefreshToken)
	if err != nil {
		return err
	}
	if sid != "" && sid != session.SID {
		return authsvc.ErrRefreshNotFound
	}
	session.ExpiresAt = expiresAt

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keyRefresh+oldRefreshToken)
	writeSession(ctx, pipe, session, newRefreshToken)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	return nil
}

// DeleteSession removes the sid's keys and its refresh token, resolved
// through the session_token pointer so a logout invalidates both lookup
// paths.
func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	hash, err := r.client.HGetAll(ctx, keySession+sid).Result()
	if err != nil {
		return fmt.Errorf("load session for delete: %w", err)
	}

	refreshToken, err := r.client.Get(ctx, keySessionToken+sid).Result()
	if err != nil && err != goredis.Nil {
		return fmt.Errorf("load session token pointer: %w", err)
	}

	var userID int64
	if raw, ok := hash["uid"]; ok {
		if parsed, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil && parsed > 0 {
			userID = parsed
		}
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keySession+sid)
	pipe.Del(ctx, keySessionToken+sid)
	if refreshToken != "" {
		pipe.Del(ctx, keyRefresh+refreshToken)
	}
	if userID > 0 {
		pipe.SRem(ctx, userSessionsKey(userID), sid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return authsvc.ErrInvalidInput
	}

	sids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	for _, sid := range sids {
		if err := r.DeleteSession(ctx, sid); err != nil {
			return err
		}
	}

	if err := r.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete user sessions key: %w", err)
	}
	return nil
}

// writeSession queues the full key set for one session onto the pipeline.
// Create and RotateRefresh share it so the two paths cannot drift.
func writeSession(ctx context.Context, pipe goredis.Pipeliner, session authsvc.SessionRecord, refreshToken string) {
	ttl := ttlFor(session.ExpiresAt)
	exp := strconv.FormatInt(session.ExpiresAt.Unix(), 10)

	pipe.HSet(ctx, keySession+session.SID, "uid", session.UserID, "exp", exp)
	pipe.Expire(ctx, keySession+session.SID, ttl)
	pipe.HSet(ctx, keyRefresh+refreshToken, "uid", session.UserID, "sid", session.SID, "exp", exp)
	pipe.Expire(ctx, keyRefresh+refreshToken, ttl)
	pipe.Set(ctx, keySessionToken+session.SID, refreshToken, ttl)
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.SID)
	pipe.Expire(ctx, userSessionsKey(session.UserID), ttl)
}

func recordFromHash(hash map[string]string) (authsvc.SessionRecord, error) {
	userID, err := strconv.ParseInt(hash["uid"], 10, 64)
	if err != nil || userID <= 0 {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	expiresUnix, err := strconv.ParseInt(hash["exp"], 10, 64)
	if err != nil {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}
	return authsvc.SessionRecord{
		UserID:    userID,
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
	}, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func userSessionsKey(userID int64) string {
	return keyUserSessions + strconv.FormatInt(userID, 10)
}
