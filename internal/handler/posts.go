package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/service"
)

// PostHandler serves /v1/posts.
type PostHandler struct {
	Posts   *service.PostService
	Log     *slog.Logger
	Timeout time.Duration
}

type postReq struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CategoryID *string   `json:"category_id"`
	Status     *string   `json:"status"`
	Tags       *[]string `json:"tags"`
}

// patch converts the body into a model.PostPatch. With replace set, absent
// fields are cleared instead of left unchanged, which gives PUT its
// full-replacement meaning.
func (r postReq) patch(replace bool) (model.PostPatch, error) {
	var p model.PostPatch
	p.Title, p.Content, p.Excerpt, p.CategoryID, p.Tags = r.Title, r.Content, r.Excerpt, r.CategoryID, r.Tags
	if r.Status != nil {
		s, err := model.ParsePostStatus(*r.Status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if replace {
		empty, none := "", []string{}
		if p.Title == nil {
			p.Title = &empty
		}
		if p.Content == nil {
			p.Content = &empty
		}
		if p.Excerpt == nil {
			p.Excerpt = &empty
		}
		if p.CategoryID == nil {
			p.CategoryID = &empty
		}
		if p.Tags == nil {
			p.Tags = &none
		}
	}
	return p, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// List: GET /v1/posts?page=&limit=&search=&category=&author=&status=
func (h *PostHandler) List(c echo.Context) error {
	f := model.PostFilter{
		Search:     strings.TrimSpace(c.QueryParam("search")),
		CategoryID: c.QueryParam("category"),
		AuthorID:   c.QueryParam("author"),
	}
	var err error
	if f.Page, err = intParam(c, "page"); err != nil {
		return badRequest(c, "page must be a number")
	}
	if f.Limit, err = intParam(c, "limit"); err != nil {
		return badRequest(c, "limit must be a number")
	}
	if s := c.QueryParam("status"); s != "" {
		if f.Status, err = model.ParsePostStatus(s); err != nil {
			return badRequest(c, "status must be draft or published")
		}
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	page, err := h.Posts.List(ctx, f, viewer(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	posts := page.Posts
	if posts == nil {
		posts = []model.Post{}
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "pagination": page.Pagination})
}

// Get: GET /v1/posts/:id
func (h *PostHandler) Get(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	p, err := h.Posts.Get(ctx, c.Param("id"), viewer(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"post": p})
}

// Create: POST /v1/posts
func (h *PostHandler) Create(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthenticated)
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in := service.PostInput{
		Title:      deref(req.Title),
		Content:    deref(req.Content),
		Excerpt:    deref(req.Excerpt),
		CategoryID: deref(req.CategoryID),
		Tags:       deref(req.Tags),
	}
	if req.Status != nil {
		s, err := model.ParsePostStatus(*req.Status)
		if err != nil {
			return badRequest(c, "status must be draft or published")
		}
		in.Status = s
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	p, err := h.Posts.Create(ctx, id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"post": p})
}

// Replace: PUT /v1/posts/:id
func (h *PostHandler) Replace(c echo.Context) error { return h.update(c, true) }

// Patch: PATCH /v1/posts/:id
func (h *PostHandler) Patch(c echo.Context) error { return h.update(c, false) }

func (h *PostHandler) update(c echo.Context, replace bool) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthenticated)
	}
	var req postReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	patch, err := req.patch(replace)
	if err != nil {
		return badRequest(c, "status must be draft or published")
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	p, err := h.Posts.Update(ctx, id, c.Param("id"), patch)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"post": p})
}

// Delete: DELETE /v1/posts/:id
func (h *PostHandler) Delete(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return writeError(c, h.Log, service.ErrUnauthenticated)
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()

	if err := h.Posts.Delete(ctx, id, c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func viewer(c echo.Context) *model.Identity {
	if id, ok := middleware.IdentityFrom(c); ok {
		return &id
	}
	return nil
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
