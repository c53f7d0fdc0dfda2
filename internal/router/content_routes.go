package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
)

// RegisterPosts registers /v1/posts. Reads are public; drafts become
// visible to their author (or an admin) when a token is sent. Writes need a
// session and the ownership check happens in the service.
func RegisterPosts(e *echo.Echo, p *handler.PostHandler, gate Gate, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/posts")
	g.GET("", p.List, gate.Optional, cache)
	g.GET("/:id", p.Get, gate.Optional)
	g.POST("", p.Create, gate.Required)
	g.PUT("/:id", p.Replace, gate.Required)
	g.PATCH("/:id", p.Patch, gate.Required)
	g.DELETE("/:id", p.Delete, gate.Required)
}

// RegisterCategories registers /v1/categories. Creating a category is
// reserved to admins.
func RegisterCategories(e *echo.Echo, h *handler.CategoryHandler, gate Gate, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/categories")
	g.GET("", h.List, cache)
	g.POST("", h.Create, gate.Required, middleware.RequireRole(model.RoleAdmin))
}
