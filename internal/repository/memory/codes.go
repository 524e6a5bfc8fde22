// Package memory provides in-process replacements for the Redis-backed
// stores, used when Redis is disabled.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// CodeStore keeps email alert verification codes in process memory
type CodeStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewCodeStore creates an empty code store
func NewCodeStore() *CodeStore {
	return &CodeStore{cache: cache.New(2*time.Minute, 5*time.Minute)}
}

// Save stores code for email, replacing any earlier one, until ttl passes
func (s *CodeStore) Save(_ context.Context, email, code string, ttl time.Duration) error {
	s.cache.Set(email, code, ttl)
	return nil
}

// Consume reports whether code matches the stored one for email and deletes it on a match
func (s *CodeStore) Consume(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(email)
	if !found || x.(string) != code {
		return false, nil
	}
	s.cache.Delete(email)
	return true, nil
}
