package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/security"
	"github.com/rs/zerolog/log"
)

// TokenRevoker remembers signed-out access tokens
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ErrInvalidToken is returned for malformed, expired, revoked or orphaned tokens
var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService handles authentication operations
type AuthService struct {
	users      domain.UserRepository
	hasher     *security.PasswordHasher
	jwtManager *security.JWTManager
	revoker    TokenRevoker
}

// NewAuthService creates a new auth service. jwtManager and revoker may be
// nil when tokens are not issued, as in the terminal client.
func NewAuthService(
	users domain.UserRepository,
	hasher *security.PasswordHasher,
	jwtManager *security.JWTManager,
	revoker TokenRevoker,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		jwtManager: jwtManager,
		revoker:    revoker,
	}
}

// Register creates a new account and returns its identity
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEmailInUse
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.AddUser(ctx, name, email, hashedPassword)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("uid", email).Msg("User registered")
	return domain.NewIdentity(user), nil
}

// Login verifies credentials and returns the identity
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Identity, error) {
	user, err := s.users.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	ok, err := s.hasher.Matches(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrWrongPassword
	}

	return domain.NewIdentity(user), nil
}

// Lookup returns the identity for uid, or nil when no such user exists
func (s *AuthService) Lookup(ctx context.Context, uid string) (*domain.Identity, error) {
	user, err := s.users.FindUserByEmail(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	return domain.NewIdentity(user), nil
}

// Revalidate checks a persisted identity snapshot against the users table.
// It returns the current identity, or nil if the user no longer exists.
func (s *AuthService) Revalidate(ctx context.Context, snapshot domain.Identity) (*domain.Identity, error) {
	if snapshot.UID == "" {
		return nil, nil
	}
	return s.Lookup(ctx, snapshot.UID)
}

// IssueToken signs an access token carrying the identity snapshot
func (s *AuthService) IssueToken(identity *domain.Identity) (*domain.AuthResponse, error) {
	if s.jwtManager == nil {
		return nil, errors.New("token issuing is not configured")
	}

	token, err := s.jwtManager.GenerateAccessToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.AccessTokenTTL().Seconds()),
		Identity:    identity,
	}, nil
}

// Authenticate validates an access token, rejects revoked tokens and
// revalidates the identity it carries.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Identity, *security.Claims, error) {
	if s.jwtManager == nil {
		return nil, nil, ErrInvalidToken
	}

	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check token: %w", err)
		}
		if revoked {
			return nil, nil, ErrInvalidToken
		}
	}

	identity, err := s.Revalidate(ctx, *claims.Identity())
	if err != nil {
		return nil, nil, err
	}
	if identity == nil {
		return nil, nil, ErrInvalidToken
	}

	return identity, claims, nil
}

// SignOut revokes the token until it would have expired
func (s *AuthService) SignOut(ctx context.Context, claims *security.Claims) error {
	if s.revoker == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
