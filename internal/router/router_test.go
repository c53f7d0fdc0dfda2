package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/metrics"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/utils"
)

type nopNotifier struct{}

func (nopNotifier) NotifyReset(context.Context, string, string) error { return nil }

type stack struct {
	e    *echo.Echo
	auth *service.AuthService
	iss  *utils.TokenIssuer
	mr   *miniredis.Miniredis
}

func newStack(t *testing.T, checks map[string]handler.Check) *stack {
	t.Helper()
	log := logging.Discard()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := repository.NewMemoryUserRepo()
	categories := repository.NewMemoryCategoryRepo()
	hasher := utils.NewPasswordHasher(bcrypt.MinCost)
	iss, err := utils.NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	authSvc := service.NewAuthService(users, hasher, iss, log)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	rl := config.RateLimitConfig{
		Enabled: true, Capacity: 3, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: time.Hour, KeyStrategy: "ip_route", Prefix: "rl",
	}
	cc := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	gate := Gate{
		Required: middleware.Authenticate(iss, authSvc, 0),
		Optional: middleware.OptionalAuthenticate(iss, authSvc, 0),
	}

	e := echo.New()
	e.Use(m.Middleware())
	RegisterRoutes(e, checks, m)
	RegisterAuth(e, &handler.AuthHandler{
		Auth:    authSvc,
		Reset:   service.NewPasswordResetService(users, hasher, nopNotifier{}, time.Hour, log),
		Metrics: m,
		Log:     log,
	}, gate, middleware.NewTokenBucket(rl, rdb, m))
	cache := middleware.NewRedisCache(cc, rdb, m)
	RegisterPosts(e, &handler.PostHandler{
		Posts: service.NewPostService(repository.NewMemoryPostRepo(users, categories), categories, log), Log: log,
	}, gate, cache)
	RegisterCategories(e, &handler.CategoryHandler{
		Categories: service.NewCategoryService(categories, log), Log: log,
	}, gate, cache)
	return &stack{e: e, auth: authSvc, iss: iss, mr: mr}
}

func (s *stack) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:1234"
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *stack) token(t *testing.T, admin bool) string {
	t.Helper()
	in := service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"}
	var id string
	if admin {
		in.Username, in.Email = "root", "root@example.com"
		u, err := s.auth.CreateAdmin(context.Background(), in)
		require.NoError(t, err)
		id = u.ID
	} else {
		res, err := s.auth.Register(context.Background(), in)
		require.NoError(t, err)
		id = res.User.ID
	}
	tok, err := s.iss.Issue(id)
	require.NoError(t, err)
	return tok.Token
}

func TestOperationalRoutes(t *testing.T) {
	s := newStack(t, map[string]handler.Check{"store": func(context.Context) error { return nil }})

	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", "").Code)

	rec = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog_http_requests_total")
}

func TestReadyz_ReportsFailingDependency(t *testing.T) {
	s := newStack(t, map[string]handler.Check{
		"store": func(context.Context) error { return errors.New("down") },
		"redis": func(context.Context) error { return nil },
	})

	rec := s.do(http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"store": "unavailable"}, body.Checks)
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	s := newStack(t, nil)

	body := `{"email":"ghost@example.com","password":"secret1"}`
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/v1/auth/login", body, "").Code)
	}
	rec := s.do(http.MethodPost, "/v1/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMe_RequiresSession(t *testing.T) {
	s := newStack(t, nil)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/auth/me", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/auth/me", "", s.token(t, false)).Code)
}

func TestCategories_AdminOnly(t *testing.T) {
	s := newStack(t, nil)
	body := `{"name":"Travel"}`

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/v1/categories", body, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/v1/categories", body, s.token(t, false)).Code)
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/v1/categories", body, s.token(t, true)).Code)
}

func TestPosts_PublicListIsCached(t *testing.T) {
	s := newStack(t, nil)
	alice := s.token(t, false)

	first := s.do(http.MethodGet, "/v1/posts", "", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	rec := s.do(http.MethodPost, "/v1/posts", `{"title":"Hello","content":"body","status":"published"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	// anonymous readers get the cached page until it expires
	second := s.do(http.MethodGet, "/v1/posts", "", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// authenticated readers bypass the cache
	fresh := s.do(http.MethodGet, "/v1/posts", "", alice)
	assert.Contains(t, fresh.Body.String(), "Hello")

	s.mr.FastForward(2 * time.Minute)
	assert.Contains(t, s.do(http.MethodGet, "/v1/posts", "", "").Body.String(), "Hello")
}
