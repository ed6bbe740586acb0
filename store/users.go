package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateUser inserts a user. Role defaults to "customer".
func (s *Store) CreateUser(ctx context.Context, email, fullName, role string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, fmt.Errorf("email is required")
	}
	if role == "" {
		role = "customer"
	}

	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return User{}, fmt.Errorf("%w: %s", ErrUserExists, email)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (email, full_name, role) VALUES (?, ?, ?)`, email, fullName, role)
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	return s.user(ctx, `id = ?`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.user(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) user(ctx context.Context, where string, arg any) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, full_name, role, created_at FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("%w: %v", ErrUserNotFound, arg)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
