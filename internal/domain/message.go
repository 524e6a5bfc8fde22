package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message represents a chat message in a session. Messages are immutable once stored.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"image_url,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	AddMessage(ctx context.Context, message *Message) error
	// ListMessagesForSession returns messages oldest first.
	ListMessagesForSession(ctx context.Context, sessionID string) ([]Message, error)
}
