package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

const userSelect = `SELECT id, username, email, password_hash, role, is_active, created_at FROM users`

func scanUser(row pgx.Row) (crawler.User, error) {
	var u crawler.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	return u, err
}

// CreateUser inserts u as an active account. Duplicate username or email yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u crawler.User) (crawler.User, error) {
	if u.Role == "" {
		u.Role = crawler.RoleUser
	}
	if !u.Role.Valid() {
		return crawler.User{}, fmt.Errorf("invalid role %q", u.Role)
	}
	u.Active = true
	u.CreatedAt = s.now()
	err := s.pool.QueryRow(ctx, `
INSERT INTO users (username, email, password_hash, role, is_active, created_at)
VALUES ($1, $2, $3, $4, TRUE, $5)
RETURNING id`, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt).Scan(&u.ID)
	if isUniqueViolation(err) {
		return crawler.User{}, fmt.Errorf("user %q: %w", u.Username, crawler.ErrConflict)
	}
	if err != nil {
		return crawler.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByID loads an active user.
func (s *Store) UserByID(ctx context.Context, id int64) (crawler.User, error) {
	return s.oneUser(ctx, userSelect+` WHERE id = $1 AND is_active`, id)
}

// UserByUsername loads an active user by login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (crawler.User, error) {
	return s.oneUser(ctx, userSelect+` WHERE username = $1 AND is_active`, username)
}

func (s *Store) oneUser(ctx context.Context, sql string, arg any) (crawler.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.User{}, fmt.Errorf("user %v: %w", arg, crawler.ErrNotFound)
	}
	if err != nil {
		return crawler.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every account, newest first, including deactivated ones.
func (s *Store) ListUsers(ctx context.Context) ([]crawler.User, error) {
	rows, err := s.pool.Query(ctx, userSelect+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (crawler.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// DeactivateUser soft-deletes an account.
func (s *Store) DeactivateUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, crawler.ErrNotFound)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (s *Store) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, crawler.ErrNotFound)
	}
	return nil
}

// UserStats counts channels emailed and replies recorded by one user.
func (s *Store) UserStats(ctx context.Context, id int64) (crawler.UserStats, error) {
	var st crawler.UserStats
	err := s.pool.QueryRow(ctx, `
SELECT
	COUNT(*) FILTER (WHERE emailed_by = $1),
	COUNT(*) FILTER (WHERE replied_by = $1)
FROM channels`, id).Scan(&st.ChannelsEmailed, &st.RepliesReceived)
	if err != nil {
		return crawler.UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}
