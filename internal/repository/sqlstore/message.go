package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Rrens/flora-expert/internal/domain"
)

// AddMessage appends a message to an existing session
func (s *Store) AddMessage(ctx context.Context, message *domain.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, message.SessionID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}

		var imageURL sql.NullString
		if message.ImageURL != "" {
			imageURL = sql.NullString{String: message.ImageURL, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, content, image_url, sent_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, message.ID, message.SessionID, string(message.Role), message.Content, imageURL, toMillis(message.Timestamp))
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	})
}

// ListMessagesForSession returns the session's messages in chronological order
func (s *Store) ListMessagesForSession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, image_url, sent_at
		FROM messages
		WHERE session_id = ?
		ORDER BY sent_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			m        domain.Message
			role     string
			imageURL sql.NullString
			sentAt   int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &imageURL, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		m.ImageURL = imageURL.String
		m.Timestamp = fromMillis(sentAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
