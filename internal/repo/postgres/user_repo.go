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

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	IsPremium    bool
	LastActive   time.Time
	CreatedAt    time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, email, passwordHash string) (UserRecord, error) {
	if tx == nil {
		return UserRecord{}, fmt.Errorf("transaction is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return UserRecord{}, fmt.Errorf("invalid user payload")
	}

	var user UserRecord
	err := tx.QueryRow(ctx, `
INSERT INTO users (
	email,
	password_hash,
	is_active,
	is_premium,
	last_active,
	created_at,
	updated_at
) VALUES ($1, $2, TRUE, FALSE, NOW(), NOW(), NOW())
ON CONFLICT (email) DO NOTHING
RETURNING id, email, password_hash, is_active, is_premium, last_active, created_at
`, email, passwordHash).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsPremium,
		&user.LastActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrEmailTaken
		}
		return UserRecord{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return UserRecord{}, fmt.Errorf("email is required")
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, is_active, is_premium, last_active, created_at
FROM users
WHERE email = $1
`, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsPremium,
		&user.LastActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by email: %w", err)
	}

	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	var user UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, is_active, is_premium, last_active, created_at
FROM users
WHERE id = $1
`, userID).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsPremium,
		&user.LastActive,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetActive resolves a user only if the account is active. Swipe targets go
// through this so deactivated accounts read as missing.
func (r *UserRepo) GetActive(ctx context.Context, userID int64) (UserRecord, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return UserRecord{}, err
	}
	if !user.IsActive {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepo) TouchLastActive(ctx context.Context, userID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET last_active = NOW(), updated_at = NOW()
WHERE id = $1
`, userID); err != nil {
		return fmt.Errorf("touch user last_active: %w", err)
	}

	return nil
}
