package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
)

// AddUser creates a user. Emails are unique case-insensitively.
func (s *Store) AddUser(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	lower := strings.ToLower(email)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email_lower = ?`, lower).Scan(&exists)
		if err == nil {
			return domain.ErrDuplicateEmail
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (name, email, email_lower, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, user.Name, user.Email, lower, user.PasswordHash, toMillis(user.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		user.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read user id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindUserByEmail looks a user up case-insensitively. Returns nil, nil when absent.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email_lower = ?
	`

	var (
		u         domain.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)

	return &u, nil
}
