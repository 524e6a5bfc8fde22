package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "revoked:"

// TokenRevocation remembers signed-out access tokens until they would expire anyway
type TokenRevocation struct {
	client *Client
}

// NewTokenRevocation creates a Redis-backed revocation list
func NewTokenRevocation(client *Client) *TokenRevocation {
	return &TokenRevocation{client: client}
}

// Revoke marks the token id as revoked until expiresAt
func (t *TokenRevocation) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := t.client.rdb.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id was revoked
func (t *TokenRevocation) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := t.client.rdb.Get(ctx, revokedPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return true, nil
}
