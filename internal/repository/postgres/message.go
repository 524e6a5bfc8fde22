package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/jackc/pgx/v5"
)

// AddMessage appends a message to an existing session
func (db *DB) AddMessage(ctx context.Context, message *domain.Message) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		found, err := exists(ctx, tx, `SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE id = $1)`, message.SessionID)
		if err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}
		if !found {
			return domain.ErrSessionNotFound
		}

		var imageURL *string
		if message.ImageURL != "" {
			imageURL = &message.ImageURL
		}

		query := `
			INSERT INTO chat_messages (id, session_id, role, content, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = tx.Exec(ctx, query,
			message.ID,
			message.SessionID,
			string(message.Role),
			message.Content,
			imageURL,
			message.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	})
}

// ListMessagesForSession returns the session's messages in chronological order
func (db *DB) ListMessagesForSession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, role, content, image_url, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := db.Pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			m        domain.Message
			roleStr  string
			imageURL *string
		)
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&roleStr,
			&m.Content,
			&imageURL,
			&m.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)
		if imageURL != nil {
			m.ImageURL = *imageURL
		}
		m.Timestamp = m.Timestamp.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}
