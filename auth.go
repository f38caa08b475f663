package filterql

import (
	"context"

	"github.com/hugr-lab/filterql/auth"
)

// Authenticator validates bearer tokens and returns user identity.
// This is re-exported from the auth package for convenience.
type Authenticator = auth.Authenticator

// BearerAuth creates an Authenticator from a validation function.
// This is the simplest way to add authentication to the query server.
//
// Example:
//
//	auth := filterql.BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", filterql.ErrUnauthorized
//	    }
//	    return user.Name, nil
//	})
//
//	config := filterql.ServerConfig{
//	    Schema: entity.Schema(),
//	    Store:  store,
//	    Auth:   auth,
//	}
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// JWTAuth accepts HS256 tokens signed with secret and uses the subject
// claim as the caller identity.
//
// Example:
//
//	auth, err := filterql.JWTAuth(secret,
//	    auth.WithIssuer("filterql"),
//	    auth.WithLeeway(30*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
func JWTAuth(secret []byte, opts ...auth.JWTOption) (Authenticator, error) {
	return auth.JWTAuth(secret, opts...)
}

// NoAuth returns an Authenticator that accepts any token as "anonymous".
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
// Owned entities use it to build the owner predicate, and custom handlers
// can use it to check who is making the request.
//
// Example:
//
//	identity := filterql.IdentityFromContext(ctx)
//	if identity == "" {
//	    return nil, filterql.ErrUnauthorized
//	}
//	res, err := query.Execute(ctx, exec, req, query.OwnedBy(identity))
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
