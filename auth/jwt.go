package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned when a JWT helper is used without a signing key.
var ErrNoSecret = errors.New("auth: no jwt secret configured")

// Claims are the token claims. The subject is the caller identity.
type Claims struct {
	jwt.RegisteredClaims
}

type jwtAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

// JWTOption configures JWTAuth.
type JWTOption func(*[]jwt.ParserOption)

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) JWTOption {
	return func(o *[]jwt.ParserOption) { *o = append(*o, jwt.WithIssuer(issuer)) }
}

// WithLeeway tolerates clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) JWTOption {
	return func(o *[]jwt.ParserOption) { *o = append(*o, jwt.WithLeeway(d)) }
}

// JWTAuth returns an Authenticator accepting HS256 tokens signed with
// secret. The identity is the sub claim.
func JWTAuth(secret []byte, opts ...JWTOption) (Authenticator, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	for _, opt := range opts {
		opt(&parserOpts)
	}
	return &jwtAuthenticator{secret: secret, parser: jwt.NewParser(parserOpts...)}, nil
}

func (a *jwtAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// NewToken issues an HS256 token for subject, valid for ttl.
func NewToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
