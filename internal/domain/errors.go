package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEmail is returned by the store when the email is already taken.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrEmailInUse is returned by registration and matches ErrDuplicateEmail too.
	ErrEmailInUse = fmt.Errorf("email already in use: %w", ErrDuplicateEmail)

	ErrUserNotFound    = errors.New("user not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrSessionNotFound = errors.New("session not found")
	ErrTurnInFlight    = errors.New("a reply is already pending for this session")
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrEmptyMessage    = errors.New("message needs text or an image")
)
