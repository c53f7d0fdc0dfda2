package utils // package utils provides the token, secret and password primitives of the auth core

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// MinSecretLen is the shortest HS256 signing secret accepted at startup.
const MinSecretLen = 32

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 30 * 24 * time.Hour

var (
	// ErrWeakSecret is returned by NewTokenIssuer when the signing secret is
	// too short. The server must refuse to start.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

	// ErrInvalidToken covers every reason a session token is rejected:
	// bad signature, malformed structure, unexpected algorithm, expiry.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionToken is a signed JWT and the moment it stops being accepted.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies HS256 session tokens. The secret is fixed
// at construction and never changes for the life of the process.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption customises a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces time.Now, used by tests to move past expiry.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer builds an issuer signing with secret. A ttl <= 0 falls back
// to DefaultSessionTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...IssuerOption) (*TokenIssuer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	i := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue signs a token whose subject is subjectID. The claims are the
// registered sub, iat and exp claims only.
func (i *TokenIssuer) Issue(subjectID string) (SessionToken, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ExpiresAt: exp}, nil
}

// Verify returns the subject of a valid token. Any failure is reported as
// ErrInvalidToken so callers cannot tell the causes apart.
func (i *TokenIssuer) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
