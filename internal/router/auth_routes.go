package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/handler"
)

// RegisterAuth registers /v1/auth. Every route sits behind limiter; only
// /me needs a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate Gate, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.GET("/reset-password", a.CheckResetToken)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/me", a.Me, gate.Required)
}
