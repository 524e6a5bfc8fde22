package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	users map[string]*domain.Identity
}

func (f fakeValidator) Revalidate(_ context.Context, snapshot domain.Identity) (*domain.Identity, error) {
	return f.users[snapshot.UID], nil
}

func newSealer(t *testing.T, secret string) *security.Sealer {
	t.Helper()
	s, err := security.NewSealerFromSecret(secret)
	require.NoError(t, err)
	return s
}

func TestManager_SignInRestoreSignOut(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flora", "identity")
	ana := &domain.Identity{UID: "a@x.com", Email: "a@x.com", DisplayName: "Ana"}
	validator := fakeValidator{users: map[string]*domain.Identity{"a@x.com": ana}}

	m := NewManager(path, newSealer(t, "k"), validator)
	assert.Nil(t, m.Current())
	require.NoError(t, m.SignIn(ana))
	assert.Equal(t, ana, m.Current())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a@x.com")

	// a new process restores the snapshot
	restarted := NewManager(path, newSealer(t, "k"), validator)
	restored, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, ana, restored)
	assert.Equal(t, ana, restarted.Current())

	require.NoError(t, restarted.SignOut())
	assert.Nil(t, restarted.Current())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestManager_RestoreDiscardsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity")
	ghost := &domain.Identity{UID: "ghost@x.com", Email: "ghost@x.com"}

	m := NewManager(path, newSealer(t, "k"), fakeValidator{})
	require.NoError(t, m.SignIn(ghost))

	restored, err := NewManager(path, newSealer(t, "k"), fakeValidator{}).Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestManager_RestoreDiscardsForeignSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "identity")
	ana := &domain.Identity{UID: "a@x.com", Email: "a@x.com"}

	require.NoError(t, NewManager(path, newSealer(t, "one"), fakeValidator{}).SignIn(ana))

	validator := fakeValidator{users: map[string]*domain.Identity{"a@x.com": ana}}
	restored, err := NewManager(path, newSealer(t, "two"), validator).Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestManager_RestoreWithoutSnapshot(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"), newSealer(t, "k"), fakeValidator{})
	restored, err := m.Restore(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, restored)
}
