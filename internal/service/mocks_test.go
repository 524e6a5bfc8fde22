package service

import (
	"context"
	"testing"
	"time"

	"github.com/Rrens/flora-expert/internal/config"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/llm"
	"github.com/Rrens/flora-expert/internal/repository/sqlstore"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockResponder mocks the Responder interface
type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Generate(ctx context.Context, prompt string, history []llm.Turn, image *llm.Image) string {
	args := m.Called(ctx, prompt, history, image)
	return args.String(0)
}

// panicResponder violates the responder contract
type panicResponder struct{}

func (panicResponder) Generate(context.Context, string, []llm.Turn, *llm.Image) string {
	panic("responder exploded")
}

// MockSender mocks mailer.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendCode(ctx context.Context, email, name, code string) bool {
	args := m.Called(ctx, email, name, code)
	return args.Bool(0)
}

// MockRevoker mocks TokenRevoker
type MockRevoker struct {
	mock.Mock
}

func (m *MockRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, expiresAt)
	return args.Error(0)
}

func (m *MockRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// failingStore fails AddMessage for the given role
type failingStore struct {
	domain.Store
	failRole domain.MessageRole
}

func (s *failingStore) AddMessage(ctx context.Context, m *domain.Message) error {
	if m.Role == s.failRole {
		return context.DeadlineExceeded
	}
	return s.Store.AddMessage(ctx, m)
}

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.OpenSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"}, true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestAuth(store domain.Store) *AuthService {
	return NewAuthService(store, security.NewPasswordHasher(4), security.NewJWTManager("test-secret", time.Hour), nil)
}

// fixedClock returns the same instant on every call
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
