package core

import (
	"context"
	"errors"
	"fmt"
)

// Role is the closed set of roles a credential can carry. Unknown role strings
// are rejected where the credential is loaded, never propagated into
// authorization decisions.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps a stored role string to a Role, failing on anything outside
// the known set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Principal is the identity resolved for a single request. The auth middleware
// attaches it to the request context; it is discarded when the request ends.
type Principal struct {
	Email string
	Name  string
	Role  Role
}

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedToken is returned for tokens that cannot be decoded at all.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned for well-signed tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature is returned when the token signature does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrUnknownSubject is returned when a valid token names a credential that
	// no longer exists.
	ErrUnknownSubject = errors.New("token subject not found")
)

// LoginResult is what a successful login hands back to the HTTP layer.
type LoginResult struct {
	Token       string
	Role        Role
	RedirectURL string
}

// AuthService defines authentication behaviour.
type AuthService interface {
	Login(ctx context.Context, email, password string) (LoginResult, error)
	Register(ctx context.Context, name, email, password, confirm string) error
}
