package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codePrefix = "alertcode:"

// CodeStore keeps email alert verification codes until they expire
type CodeStore struct {
	client *Client
}

// NewCodeStore creates a Redis-backed code store
func NewCodeStore(client *Client) *CodeStore {
	return &CodeStore{client: client}
}

// Save stores code for email, replacing any previous one
func (s *CodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.rdb.Set(ctx, codePrefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	return nil
}

// Consume reports whether code matches the stored one and deletes it on a match
func (s *CodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	key := codePrefix + email

	stored, err := s.client.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read code: %w", err)
	}
	if stored != code {
		return false, nil
	}

	// Del returns 0 if a concurrent verifier already consumed the code
	n, err := s.client.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume code: %w", err)
	}
	return n == 1, nil
}
