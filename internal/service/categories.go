package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

// CategoryStore persists categories.
type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
}

// DefaultCategories are inserted by Seed.
var DefaultCategories = []model.Category{
	{Name: "Technology", Description: "Latest trends and innovations in technology"},
	{Name: "Lifestyle", Description: "Tips and stories about daily life and wellness"},
	{Name: "Travel", Description: "Destinations, adventures, and travel experiences"},
}

type CategoryService struct {
	categories CategoryStore
	log        *slog.Logger
}

func NewCategoryService(categories CategoryStore, log *slog.Logger) *CategoryService {
	if log == nil {
		log = slog.Default()
	}
	return &CategoryService{categories: categories, log: log}
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, transient("list categories", err)
	}
	return cats, nil
}

// Create adds a category. Only admins may call it.
func (s *CategoryService) Create(ctx context.Context, actor model.Identity, name, description string) (*model.Category, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	c, err := s.create(ctx, name, description)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "category created", "category_id", c.ID, "user_id", actor.ID)
	return c, nil
}

// Seed inserts DefaultCategories, skipping the ones that already exist, and
// returns how many were created.
func (s *CategoryService) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, c := range DefaultCategories {
		_, err := s.create(ctx, c.Name, c.Description)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAlreadyExists):
		default:
			return created, err
		}
	}
	return created, nil
}

func (s *CategoryService) create(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(name); n == 0 || n > 100 {
		return nil, invalid("name must be between 1 and 100 characters")
	}
	if utf8.RuneCountInString(description) > 500 {
		return nil, invalid("description must be at most 500 characters")
	}
	c := &model.Category{Name: name, Slug: slug.Make(name), Description: description}
	if c.Slug == "" {
		return nil, invalid("name must contain letters or digits")
	}
	if err := s.categories.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, transient("create category", err)
	}
	return c, nil
}
