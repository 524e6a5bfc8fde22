package domain

import "strings"

// Identity is the authenticated user context. UID is derived from the
// normalized email, so the same credentials always yield the same identity.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// NewIdentity builds the identity for a stored user
func NewIdentity(u *User) *Identity {
	email := NormalizeEmail(u.Email)
	return &Identity{
		UID:         email,
		Email:       email,
		DisplayName: u.Name,
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthResponse is returned by register and login over HTTP
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Identity    *Identity `json:"identity"`
}
