package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

// CategoryHandler serves /v1/categories.
type CategoryHandler struct {
	Categories *service.CategoryService
	Log        *slog.Logger
	Timeout    time.Duration
}

type categoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List: GET /v1/categories
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	cats, err := h.Categories.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if cats == nil {
		cats = []model.Category{}
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

// Create: POST /v1/categories (admin only)
func (h *CategoryHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthenticated)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	cat, err := h.Categories.Create(ctx, id, req.Name, req.Description)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"category": cat})
}
