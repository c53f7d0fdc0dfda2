package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-api/internal/model"
)

// MemoryPostRepo keeps posts in process memory. Authors and categories are
// resolved against the given memory stores, the way PostRepo joins them;
// either may be nil, leaving that summary empty.
type MemoryPostRepo struct {
	mu         sync.RWMutex
	posts      map[string]model.Post
	users      *MemoryUserRepo
	categories *MemoryCategoryRepo
}

func NewMemoryPostRepo(users *MemoryUserRepo, categories *MemoryCategoryRepo) *MemoryPostRepo {
	return &MemoryPostRepo{posts: make(map[string]model.Post), users: users, categories: categories}
}

func (r *MemoryPostRepo) Create(_ context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Tags == nil {
		p.Tags = []string{}
	}
	r.posts[p.ID] = clonePost(*p)
	return nil
}

func (r *MemoryPostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clonePost(p)
	r.populate(&c)
	return &c, nil
}

func (r *MemoryPostRepo) List(_ context.Context, f model.PostFilter) ([]model.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []model.Post
	for _, p := range r.posts {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		if f.CategoryID != "" && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		c := clonePost(p)
		r.populate(&c)
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := f.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + f.Limit
	if end > total || end < start {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryPostRepo) Update(_ context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.posts[p.ID] = clonePost(*p)
	return nil
}

func (r *MemoryPostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *MemoryPostRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		p.Views++
		r.posts[id] = p
	}
	return nil
}

// populate fills the author and category summaries. Lock order is always
// posts before users/categories.
func (r *MemoryPostRepo) populate(p *model.Post) {
	p.Author, p.Category = nil, nil
	if r.users != nil {
		if u, err := r.users.GetByID(context.Background(), p.AuthorID); err == nil {
			p.Author = &model.AuthorSummary{ID: u.ID, Username: u.Username}
		}
	}
	if r.categories != nil && p.CategoryID != nil {
		if c, err := r.categories.GetByID(context.Background(), *p.CategoryID); err == nil {
			p.Category = &model.CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug}
		}
	}
}

// clonePost copies p without its read-side summaries.
func clonePost(p model.Post) model.Post {
	p.Author, p.Category = nil, nil
	p.Tags = append([]string{}, p.Tags...)
	if p.CategoryID != nil {
		c := *p.CategoryID
		p.CategoryID = &c
	}
	return p
}
