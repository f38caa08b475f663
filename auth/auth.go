// Package auth authenticates filterql callers. The resolved identity is
// the user that owner-scoped entities are filtered by.
package auth

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned when no bearer token was sent.
	ErrTokenIsEmpty = errors.New("bearer token is empty")

	// ErrUnauthenticated is returned when the authenticator rejects a token.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authenticator validates bearer tokens and returns the caller identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates token and returns the identity owner-scoped
	// queries are restricted to.
	// Returns an error if the token is invalid or expired.
	// The context allows a timeout for auth backend calls.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// noAuthenticator is an Authenticator that accepts every token.
// DO NOT use in production.
type noAuthenticator struct{}

// NoAuth returns an Authenticator that accepts every token as "anonymous".
// Useful for development and testing. Owner-scoped entities then only
// return rows owned by "anonymous".
func NoAuth() Authenticator {
	return noAuthenticator{}
}

// Authenticate implements Authenticator for noAuthenticator.
// Always returns "anonymous" as the identity.
func (noAuthenticator) Authenticate(context.Context, string) (string, error) {
	return "anonymous", nil
}

// ValidateToken authenticates token and returns ctx carrying the identity.
// Rejections wrap ErrUnauthenticated.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, ErrTokenIsEmpty
	}

	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if identity == "" {
		return ctx, fmt.Errorf("%w: empty identity", ErrUnauthenticated)
	}

	return WithIdentity(ctx, identity), nil
}
