package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rrens/flora-expert/internal/domain"
)

// AddSession inserts a session owned by an existing user
func (s *Store) AddSession(ctx context.Context, session *domain.ChatSession) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email_lower = ?`, session.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check session owner: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, user_id, title, created_at)
			VALUES (?, ?, ?, ?)
		`, session.ID, session.UserID, session.Title, toMillis(session.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

// GetSession returns the session or nil, nil when absent
func (s *Store) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM sessions
		WHERE id = ?
	`
	var (
		sess      domain.ChatSession
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &sess.UserID, &sess.Title, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.CreatedAt = fromMillis(createdAt)
	return &sess, nil
}

// UpdateSessionTitle renames a session
func (s *Store) UpdateSessionTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n == 0 {
		// MySQL reports 0 affected rows when the title is unchanged
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if sess == nil {
			return domain.ErrSessionNotFound
		}
	}
	return nil
}

// ListSessionsForUser returns the user's sessions, newest first
func (s *Store) ListSessionsForUser(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		var (
			sess      domain.ChatSession
			createdAt int64
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.CreatedAt = fromMillis(createdAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}
