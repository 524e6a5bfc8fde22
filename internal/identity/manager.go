// Package identity keeps the terminal client's signed-in identity across
// process restarts in a sealed snapshot file.
package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/rs/zerolog/log"
)

// Validator checks a snapshot against the users table
type Validator interface {
	Revalidate(ctx context.Context, snapshot domain.Identity) (*domain.Identity, error)
}

// Manager owns the single current identity of the process
type Manager struct {
	path      string
	sealer    *security.Sealer
	validator Validator

	mu      sync.RWMutex
	current *domain.Identity
}

// NewManager creates a manager persisting to path
func NewManager(path string, sealer *security.Sealer, validator Validator) *Manager {
	return &Manager{
		path:      path,
		sealer:    sealer,
		validator: validator,
	}
}

// Current returns the signed-in identity, or nil
func (m *Manager) Current() *domain.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	id := *m.current
	return &id
}

// SignIn makes identity current and persists the snapshot
func (m *Manager) SignIn(identity *domain.Identity) error {
	if identity == nil {
		return errors.New("identity is required")
	}

	sealed, err := m.sealer.SealJSON(identity)
	if err != nil {
		return fmt.Errorf("failed to seal identity: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(m.path, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}

	m.mu.Lock()
	id := *identity
	m.current = &id
	m.mu.Unlock()
	return nil
}

// SignOut clears the current identity and deletes the snapshot
func (m *Manager) SignOut() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return m.discard()
}

// Restore loads the snapshot and revalidates it. A snapshot that cannot be
// opened or whose user no longer exists is deleted.
func (m *Manager) Restore(ctx context.Context) (*domain.Identity, error) {
	sealed, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read identity: %w", err)
	}

	var snapshot domain.Identity
	if err := m.sealer.OpenJSON(sealed, &snapshot); err != nil {
		log.Warn().Err(err).Str("path", m.path).Msg("Discarding unreadable identity snapshot")
		return nil, m.discard()
	}

	current, err := m.validator.Revalidate(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	if current == nil {
		log.Info().Str("uid", snapshot.UID).Msg("Identity snapshot no longer matches a user")
		return nil, m.discard()
	}

	m.mu.Lock()
	m.current = current
	m.mu.Unlock()

	id := *current
	return &id, nil
}

func (m *Manager) discard() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity: %w", err)
	}
	return nil
}
