package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// TokenRevocation is an in-process list of signed-out access token ids
type TokenRevocation struct {
	cache *cache.Cache
}

func NewTokenRevocation() *TokenRevocation {
	return &TokenRevocation{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (t *TokenRevocation) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	t.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (t *TokenRevocation) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := t.cache.Get(tokenID)
	return found, nil
}
