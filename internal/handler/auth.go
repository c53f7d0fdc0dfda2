package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/metrics"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

const concealedResetMessage = "If an account exists for that email, a password reset link has been sent"

// AuthHandler bundles dependencies for the /v1/auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Reset   *service.PasswordResetService
	Metrics *metrics.Metrics
	Log     *slog.Logger

	// ConcealUnknown answers forgot-password for an unknown email exactly
	// like a known one.
	ConcealUnknown bool
	// Timeout bounds the store work behind each request.
	Timeout time.Duration
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type authResp struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func newAuthResp(res service.AuthResult) authResp {
	return authResp{User: res.User, Token: res.Token.Token, ExpiresAt: res.Token.ExpiresAt}
}

// Register: create a standard account and return a session token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	h.record("register", err, service.ErrValidation, service.ErrAlreadyExists)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, newAuthResp(res))
}

// Login: verify credentials and return a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	h.record("login", err, service.ErrInvalidCredentials)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newAuthResp(res))
}

// Me: return the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthenticated)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, id.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			err = service.ErrUnauthenticated
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// ForgotPassword: issue a reset secret and mail it. Whether an unknown email
// is revealed depends on ConcealUnknown.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "email is required")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	err := h.Reset.RequestReset(ctx, req.Email)
	h.record("reset_request", err, service.ErrNotFound)
	switch {
	case err == nil && h.ConcealUnknown:
		return c.JSON(http.StatusOK, echo.Map{"message": concealedResetMessage})
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "Password reset email sent"})
	case errors.Is(err, service.ErrNotFound) && h.ConcealUnknown:
		return c.JSON(http.StatusOK, echo.Map{"message": concealedResetMessage})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return writeError(c, h.Log, err)
}

// CheckResetToken: report whether the token in ?token= can still be used,
// so the frontend can show an error before asking for a new password.
func (h *AuthHandler) CheckResetToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return badRequest(c, "token is required")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.Reset.CheckReset(ctx, token); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

// ResetPassword: redeem a reset secret.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Token == "" || req.Password == "" {
		return badRequest(c, "token and password are required")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	err := h.Reset.CompleteReset(ctx, req.Token, req.Password)
	h.record("reset_complete", err, service.ErrInvalidOrExpired, service.ErrValidation)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successful"})
}

// Logout acknowledges a logout. Sessions are stateless: the client discards
// its token, which stays valid until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return storeCtx(c, h.Timeout)
}

// record counts an auth event. Errors matching one of expected are a
// failure by the caller; any other error is ours.
func (h *AuthHandler) record(event string, err error, expected ...error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		for _, e := range expected {
			if errors.Is(err, e) {
				outcome = metrics.OutcomeFailure
				break
			}
		}
	}
	h.Metrics.AuthEvent(event, outcome)
}
