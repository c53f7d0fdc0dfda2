package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxTitleLen     = 200
	maxExcerptLen   = 500
	maxTags         = 10
)

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, f model.PostFilter) ([]model.Post, int, error)
	Update(ctx context.Context, p *model.Post) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// PostInput is the body of a create request.
type PostInput struct {
	Title      string
	Content    string
	Excerpt    string
	CategoryID string
	Status     model.PostStatus
	Tags       []string
}

// PostPage is one page of a listing.
type PostPage struct {
	Posts      []model.Post
	Pagination model.Pagination
}

// PostService implements the post operations, including the ownership
// check in front of Update and Delete.
type PostService struct {
	posts      PostStore
	categories CategoryStore
	log        *slog.Logger
}

func NewPostService(posts PostStore, categories CategoryStore, log *slog.Logger) *PostService {
	if log == nil {
		log = slog.Default()
	}
	return &PostService{posts: posts, categories: categories, log: log}
}

// List returns a page of posts. Without a status filter only published
// posts are listed. Drafts can only be listed by their author (the filter
// is narrowed to the viewer) or by an admin.
func (s *PostService) List(ctx context.Context, f model.PostFilter, viewer *model.Identity) (PostPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	// the row offset (Page-1)*Limit must fit in an int
	if f.Page-1 > math.MaxInt/f.Limit {
		return PostPage{}, invalid("page is out of range")
	}
	if f.Status == "" {
		f.Status = model.PostPublished
	}
	if f.Status == model.PostDraft {
		if viewer == nil {
			return PostPage{}, ErrUnauthenticated
		}
		if !viewer.IsAdmin() {
			f.AuthorID = viewer.ID
		}
	}

	posts, total, err := s.posts.List(ctx, f)
	if err != nil {
		return PostPage{}, transient("list posts", err)
	}
	pages := 0
	if total > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return PostPage{
		Posts:      posts,
		Pagination: model.Pagination{Page: f.Page, Limit: f.Limit, Total: total, Pages: pages},
	}, nil
}

// Get returns a post and counts the view. Drafts the viewer may not see
// are reported as not found.
func (s *PostService) Get(ctx context.Context, id string, viewer *model.Identity) (*model.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(viewer, p) {
		return nil, ErrNotFound
	}
	if err := s.posts.IncrementViews(ctx, id); err != nil {
		s.log.WarnContext(ctx, "increment views failed", "post_id", id, "error", err)
	} else {
		p.Views++
	}
	return p, nil
}

// Create stores a new post authored by actor.
func (s *PostService) Create(ctx context.Context, actor model.Identity, in PostInput) (*model.Post, error) {
	p := &model.Post{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Excerpt:  strings.TrimSpace(in.Excerpt),
		AuthorID: actor.ID,
		Status:   in.Status,
		Tags:     normalizeTags(in.Tags),
	}
	if p.Status == "" {
		p.Status = model.PostDraft
	}
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		p.CategoryID = &id
	}
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, transient("create post", err)
	}
	s.log.InfoContext(ctx, "post created", "post_id", p.ID, "user_id", actor.ID)
	return s.reread(ctx, p), nil
}

// Update applies patch to the post if actor authored it or is an admin.
func (s *PostService) Update(ctx context.Context, actor model.Identity, id string, patch model.PostPatch) (*model.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, p.AuthorID); err != nil {
		return nil, err
	}

	patch.Apply(p)
	p.Title = strings.TrimSpace(p.Title)
	p.Tags = normalizeTags(p.Tags)
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("update post", err)
	}
	s.log.InfoContext(ctx, "post updated", "post_id", p.ID, "user_id", actor.ID)
	return s.reread(ctx, p), nil
}

// Delete removes the post if actor authored it or is an admin.
func (s *PostService) Delete(ctx context.Context, actor model.Identity, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor, p.AuthorID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return transient("delete post", err)
	}
	s.log.InfoContext(ctx, "post deleted", "post_id", id, "user_id", actor.ID)
	return nil
}

func (s *PostService) load(ctx context.Context, id string) (*model.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, transient("load post", err)
	}
	return p, nil
}

// reread loads the stored view of a post just written, with its author and
// category summaries. The write already succeeded, so a failed read falls
// back to p.
func (s *PostService) reread(ctx context.Context, p *model.Post) *model.Post {
	stored, err := s.posts.GetByID(ctx, p.ID)
	if err != nil {
		s.log.WarnContext(ctx, "reload post failed", "post_id", p.ID, "error", err)
		return p
	}
	return stored
}

func (s *PostService) validate(ctx context.Context, p *model.Post) error {
	if n := utf8.RuneCountInString(p.Title); n == 0 || n > maxTitleLen {
		return invalid("title must be between 1 and %d characters", maxTitleLen)
	}
	if strings.TrimSpace(p.Content) == "" {
		return invalid("content is required")
	}
	if utf8.RuneCountInString(p.Excerpt) > maxExcerptLen {
		return invalid("excerpt must be at most %d characters", maxExcerptLen)
	}
	if _, err := model.ParsePostStatus(string(p.Status)); err != nil {
		return invalid("status must be draft or published")
	}
	if len(p.Tags) > maxTags {
		return invalid("at most %d tags are allowed", maxTags)
	}
	if p.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *p.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("unknown category")
			}
			return transient("load category", err)
		}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
