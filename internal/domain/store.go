package domain

import "context"

// Store is the local persistence layer: users, sessions and messages
// behind one handle. Every write is atomic from the caller's point of view.
type Store interface {
	UserRepository
	SessionRepository
	MessageRepository

	Ping(ctx context.Context) error
	Close() error
}
