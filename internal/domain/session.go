package domain

import (
	"context"
	"time"
)

const (
	// PlaceholderTitle is the title every new session starts with.
	PlaceholderTitle = "New Chat"
	// PhotoTitle replaces the placeholder when the first turn carries an image.
	PhotoTitle = "Photo Analysis"
	// TitleMaxRunes is how much of the first message survives in a title.
	TitleMaxRunes = 25
)

// ChatSession represents one conversation thread owned by a user
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// NeedsTitle reports whether the session still carries the placeholder title.
func (s *ChatSession) NeedsTitle() bool {
	return s.Title == PlaceholderTitle || s.Title == ""
}

// SessionView is a session together with its ordered messages
type SessionView struct {
	ChatSession
	Messages []Message `json:"messages"`
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	AddSession(ctx context.Context, session *ChatSession) error
	GetSession(ctx context.Context, id string) (*ChatSession, error)
	UpdateSessionTitle(ctx context.Context, id, title string) error
	// ListSessionsForUser returns sessions newest first.
	ListSessionsForUser(ctx context.Context, userID string) ([]ChatSession, error)
}

// TitleFor computes the title a placeholder session receives from its first turn.
func TitleFor(content string, hasImage bool) string {
	if hasImage {
		return PhotoTitle
	}
	runes := []rune(content)
	if len(runes) > TitleMaxRunes {
		return string(runes[:TitleMaxRunes]) + "..."
	}
	return content
}
