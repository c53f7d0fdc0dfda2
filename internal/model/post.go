package model

import (
	"fmt"
	"time"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// ParsePostStatus validates a status coming from a request body or query.
func ParsePostStatus(s string) (PostStatus, error) {
	switch PostStatus(s) {
	case PostDraft, PostPublished:
		return PostStatus(s), nil
	}
	return "", fmt.Errorf("unknown post status %q", s)
}

// AuthorSummary is the byline shown with a post.
type AuthorSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CategorySummary names the category a post is filed under.
type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Post mirrors the `posts` table. AuthorID is the ownership field checked
// before any update or delete. Author and Category are filled in by the
// stores on read and are never written back.
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Excerpt    string     `json:"excerpt,omitempty"`
	AuthorID   string     `json:"author_id"`
	CategoryID *string    `json:"category_id,omitempty"`
	Status     PostStatus `json:"status"`
	Tags       []string   `json:"tags"`
	Views      int64      `json:"views"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Author   *AuthorSummary   `json:"author,omitempty"`
	Category *CategorySummary `json:"category,omitempty"`
}

// PostFilter narrows a post listing. Zero values mean "no filter" except
// Status, which the service defaults to published.
type PostFilter struct {
	Search     string
	CategoryID string
	AuthorID   string
	Status     PostStatus
	Page       int
	Limit      int
}

// Offset converts Page/Limit into a row offset.
func (f PostFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// PostPatch carries the fields of an update; nil means "leave unchanged".
type PostPatch struct {
	Title      *string
	Content    *string
	Excerpt    *string
	CategoryID *string
	Status     *PostStatus
	Tags       *[]string
}

// Apply copies the set fields of p onto post.
func (p PostPatch) Apply(post *Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Excerpt != nil {
		post.Excerpt = *p.Excerpt
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			post.CategoryID = nil
		} else {
			v := *p.CategoryID
			post.CategoryID = &v
		}
	}
	if p.Status != nil {
		post.Status = *p.Status
	}
	if p.Tags != nil {
		post.Tags = append([]string(nil), (*p.Tags)...)
	}
}

// Pagination is returned alongside a page of posts.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
