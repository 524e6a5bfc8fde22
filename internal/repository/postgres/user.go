package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/jackc/pgx/v5"
)

// AddUser creates a user. Emails are unique case-insensitively.
func (db *DB) AddUser(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	query := `
		INSERT INTO users (name, email, email_lower, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := db.Pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		strings.ToLower(email),
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindUserByEmail looks a user up case-insensitively. Returns nil, nil when absent.
func (db *DB) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email_lower = $1
	`

	var u domain.User
	err := db.Pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()

	return &u, nil
}
