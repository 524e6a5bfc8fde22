package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/jackc/pgx/v5"
)

// AddSession inserts a session owned by an existing user
func (db *DB) AddSession(ctx context.Context, session *domain.ChatSession) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		found, err := exists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM users WHERE email_lower = $1)`, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to check session owner: %w", err)
		}
		if !found {
			return domain.ErrUserNotFound
		}

		query := `
			INSERT INTO chat_sessions (id, user_id, title, created_at)
			VALUES ($1, $2, $3, $4)
		`
		_, err = tx.Exec(ctx, query,
			session.ID,
			session.UserID,
			session.Title,
			session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

// GetSession returns the session or nil, nil when absent
func (db *DB) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM chat_sessions
		WHERE id = $1
	`
	var s domain.ChatSession
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Title,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// UpdateSessionTitle renames a session
func (db *DB) UpdateSessionTitle(ctx context.Context, id, title string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE chat_sessions SET title = $1 WHERE id = $2`, title, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListSessionsForUser returns the user's sessions, newest first
func (db *DB) ListSessionsForUser(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		var s domain.ChatSession
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Title,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
