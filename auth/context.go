package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with the given caller identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the caller identity, or "" for an
// unauthenticated request.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}

const bearerPrefix = "Bearer "

// TokenFromAuthorizationHeader parses "Bearer <token>".
func TokenFromAuthorizationHeader(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// ExtractToken reads the bearer token from incoming gRPC metadata.
// A request without an authorization header yields ErrTokenIsEmpty.
func ExtractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ErrTokenIsEmpty
	}
	headers := md.Get("authorization")
	if len(headers) == 0 {
		return "", ErrTokenIsEmpty
	}
	return TokenFromAuthorizationHeader(headers[0])
}
