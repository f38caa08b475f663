package auth

import "context"

// bearerAuthenticator wraps a caller-provided validation function.
type bearerAuthenticator struct {
	validate func(token string) (string, error)
}

// BearerAuth creates an Authenticator from a validation function.
// This is the simplest way to put a session store or an external
// identity service in front of the server.
//
// Example:
//
//	auth := auth.BearerAuth(func(token string) (string, error) {
//	    user, ok := sessions[token]
//	    if !ok {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user, nil
//	})
//
// The returned identity is matched against the owner field of owned
// entities, so it must be the stored user name.
func BearerAuth(validate func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{validate: validate}
}

// Authenticate implements Authenticator for bearerAuthenticator.
// The context is not consulted; a validation function doing I/O should
// apply its own deadline.
func (b *bearerAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	return b.validate(token)
}
