package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

// defaultIdentityTimeout bounds the identity lookup when no timeout is given.
const defaultIdentityTimeout = 5 * time.Second

// TokenVerifier checks a session token and returns its subject id.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// IdentityLoader resolves a subject id to the caller's current identity.
// A missing account must be reported as service.ErrUnauthenticated.
type IdentityLoader interface {
	Identity(ctx context.Context, id string) (model.Identity, error)
}

var (
	errUnauthorized = echo.Map{"error": "unauthorized"}
	errUnavailable  = echo.Map{"error": "service temporarily unavailable"}
)

// Authenticate requires a valid bearer token. The role is always read from
// the store rather than the token, so a role change takes effect on the
// next request. Every authentication failure gets the same 401 body; a
// store failure while loading the identity is a 503.
//
// timeout bounds the identity lookup, like the store budget of a handler.
func Authenticate(verifier TokenVerifier, loader IdentityLoader, timeout time.Duration) echo.MiddlewareFunc {
	return authenticate(verifier, loader, timeout, false)
}

// OptionalAuthenticate attaches an identity when a bearer token is present
// and lets anonymous requests through. A token that is present but invalid
// is still rejected.
func OptionalAuthenticate(verifier TokenVerifier, loader IdentityLoader, timeout time.Duration) echo.MiddlewareFunc {
	return authenticate(verifier, loader, timeout, true)
}

func authenticate(verifier TokenVerifier, loader IdentityLoader, timeout time.Duration, optional bool) echo.MiddlewareFunc {
	if timeout <= 0 {
		timeout = defaultIdentityTimeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" && optional {
				return next(c)
			}
			raw, ok := bearerToken(header)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errUnauthorized)
			}
			sub, err := verifier.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errUnauthorized)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			id, err := loader.Identity(ctx, sub)
			cancel()
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					return c.JSON(http.StatusUnauthorized, errUnauthorized)
				}
				c.Logger().Errorf("identity load failed: %v", err)
				return c.JSON(http.StatusServiceUnavailable, errUnavailable)
			}

			setIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
