package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

type stubVerifier map[string]string

func (v stubVerifier) Verify(raw string) (string, error) {
	if sub, ok := v[raw]; ok {
		return sub, nil
	}
	return "", errors.New("invalid token")
}

type stubLoader struct {
	ids map[string]model.Identity
	err error
}

func (l stubLoader) Identity(_ context.Context, id string) (model.Identity, error) {
	if l.err != nil {
		return model.Identity{}, l.err
	}
	if ident, ok := l.ids[id]; ok {
		return ident, nil
	}
	return model.Identity{}, service.ErrUnauthenticated
}

var (
	verifier = stubVerifier{"good": "u1", "admin": "a1", "ghost": "gone"}
	loader   = stubLoader{ids: map[string]model.Identity{
		"u1": {ID: "u1", Role: model.RoleStandard},
		"a1": {ID: "a1", Role: model.RoleAdmin},
	}}
)

func serve(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anon")
		}
		ctxID, _ := model.IdentityFromContext(c.Request().Context())
		require.Equal(t, id, ctxID)
		return c.String(http.StatusOK, id.ID+":"+id.Role.String())
	}, mw...)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	mw := []echo.MiddlewareFunc{Authenticate(verifier, loader, 0)}

	rec := serve(t, mw, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1:user", rec.Body.String())

	rec = serve(t, mw, "bearer admin")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1:admin", rec.Body.String())
}

func TestAuthenticate_FailuresLookAlike(t *testing.T) {
	mw := []echo.MiddlewareFunc{Authenticate(verifier, loader, 0)}
	headers := []string{"", "good", "Basic good", "Bearer ", "Bearer bad", "Bearer good extra", "Bearer ghost"}

	var bodies []string
	for _, h := range headers {
		rec := serve(t, mw, h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", h)
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestAuthenticate_StoreFailureIs503(t *testing.T) {
	failing := stubLoader{err: errors.New("load user: temporarily unavailable")}
	rec := serve(t, []echo.MiddlewareFunc{Authenticate(verifier, failing, 0)}, "Bearer good")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// slowLoader blocks until the lookup deadline and records it.
type slowLoader struct{ budget chan time.Duration }

func (l slowLoader) Identity(ctx context.Context, _ string) (model.Identity, error) {
	deadline, _ := ctx.Deadline()
	l.budget <- time.Until(deadline)
	<-ctx.Done()
	return model.Identity{}, ctx.Err()
}

func TestAuthenticate_HonoursTimeout(t *testing.T) {
	slow := slowLoader{budget: make(chan time.Duration, 1)}
	start := time.Now()
	rec := serve(t, []echo.MiddlewareFunc{Authenticate(verifier, slow, 20*time.Millisecond)}, "Bearer good")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.LessOrEqual(t, <-slow.budget, 20*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOptionalAuthenticate(t *testing.T) {
	mw := []echo.MiddlewareFunc{OptionalAuthenticate(verifier, loader, 0)}

	rec := serve(t, mw, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anon", rec.Body.String())

	rec = serve(t, mw, "Bearer good")
	assert.Equal(t, "u1:user", rec.Body.String())

	rec = serve(t, mw, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	mw := []echo.MiddlewareFunc{Authenticate(verifier, loader, 0), RequireRole(model.RoleAdmin)}

	assert.Equal(t, http.StatusForbidden, serve(t, mw, "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(t, mw, "Bearer admin").Code)

	// mounted without Authenticate
	assert.Equal(t, http.StatusUnauthorized, serve(t, []echo.MiddlewareFunc{RequireRole(model.RoleAdmin)}, "Bearer admin").Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = bearerToken("Bearerabc")
	assert.False(t, ok)
}
