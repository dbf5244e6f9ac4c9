package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// UserStore reads and writes users rows.
type UserStore struct {
	q querier
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("UserStore.Create: %w", err)
	}
	return user, nil
}

// GetByEmail returns the user with that email, or (nil, nil) when absent.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)",
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UserStore.GetByEmail: %w", err)
	}
	return &user, nil
}
