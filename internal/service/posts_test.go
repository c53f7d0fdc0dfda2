package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
)

var (
	alice = model.Identity{ID: "alice-id", Role: model.RoleStandard}
	bob   = model.Identity{ID: "bob-id", Role: model.RoleStandard}
	admin = model.Identity{ID: "admin-id", Role: model.RoleAdmin}
)

func newPostService(t *testing.T) (*PostService, *CategoryService) {
	t.Helper()
	cats := repository.NewMemoryCategoryRepo()
	return NewPostService(repository.NewMemoryPostRepo(nil, cats), cats, quietLogger()),
		NewCategoryService(cats, quietLogger())
}

func createPost(t *testing.T, svc *PostService, actor model.Identity, status model.PostStatus) *model.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), actor, PostInput{Title: "Hello", Content: "World", Status: status})
	require.NoError(t, err)
	return p
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize(alice, alice.ID))
	assert.ErrorIs(t, Authorize(bob, alice.ID), ErrForbidden)
	assert.NoError(t, Authorize(admin, alice.ID))
	assert.ErrorIs(t, Authorize(model.Identity{ID: alice.ID}, alice.ID), ErrForbidden)
	assert.ErrorIs(t, Authorize(model.Identity{Role: model.RoleStandard}, ""), ErrForbidden)

	assert.NoError(t, RequireAdmin(admin))
	assert.ErrorIs(t, RequireAdmin(alice), ErrForbidden)
}

func TestPostCreate_DefaultsToDraft(t *testing.T) {
	svc, _ := newPostService(t)
	p, err := svc.Create(context.Background(), alice, PostInput{
		Title: "  Hello ", Content: "World", Tags: []string{"Go", "go ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PostDraft, p.Status)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, alice.ID, p.AuthorID)
	assert.Equal(t, []string{"go"}, p.Tags)
}

func TestPostCreate_Validation(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, PostInput{Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, alice, PostInput{Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, alice, PostInput{Title: "x", Content: "y", Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, alice, PostInput{Title: "x", Content: "y", CategoryID: "missing"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPostUpdate_Ownership(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	p := createPost(t, svc, alice, model.PostPublished)
	title := "Changed"

	_, err := svc.Update(ctx, bob, p.ID, model.PostPatch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)

	updated, err := svc.Update(ctx, alice, p.ID, model.PostPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Changed", updated.Title)

	other := "By admin"
	updated, err = svc.Update(ctx, admin, p.ID, model.PostPatch{Title: &other})
	require.NoError(t, err)
	assert.Equal(t, "By admin", updated.Title)
	assert.Equal(t, alice.ID, updated.AuthorID)
}

func TestPostDelete_Ownership(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	p := createPost(t, svc, alice, model.PostPublished)

	assert.ErrorIs(t, svc.Delete(ctx, bob, p.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, p.ID), ErrNotFound)

	_, err := svc.Get(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostGet_DraftVisibility(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	p := createPost(t, svc, alice, model.PostDraft)

	_, err := svc.Get(ctx, p.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, p.ID, &bob)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, p.ID, &alice)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Views)

	got, err = svc.Get(ctx, p.ID, &admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Views)
}

func TestPostList_ScopesDrafts(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	createPost(t, svc, alice, model.PostPublished)
	createPost(t, svc, alice, model.PostDraft)
	createPost(t, svc, bob, model.PostDraft)

	page, err := svc.List(ctx, model.PostFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)
	assert.Equal(t, model.Pagination{Page: 1, Limit: 10, Total: 1, Pages: 1}, page.Pagination)

	_, err = svc.List(ctx, model.PostFilter{Status: model.PostDraft}, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	page, err = svc.List(ctx, model.PostFilter{Status: model.PostDraft}, &alice)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, alice.ID, page.Posts[0].AuthorID)

	page, err = svc.List(ctx, model.PostFilter{Status: model.PostDraft}, &admin)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
}

func TestPostList_ClampsPaging(t *testing.T) {
	svc, _ := newPostService(t)
	page, err := svc.List(context.Background(), model.PostFilter{Page: -3, Limit: 1000}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.Limit)
	assert.Equal(t, 0, page.Pagination.Pages)
}

func TestPostList_RejectsOverflowingPage(t *testing.T) {
	svc, _ := newPostService(t)
	createPost(t, svc, alice, model.PostPublished)

	_, err := svc.List(context.Background(), model.PostFilter{Page: 1_000_000_000_000_000_000, Limit: 10}, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.List(context.Background(), model.PostFilter{Page: math.MaxInt, Limit: 2}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	// the last representable page is still served, just empty
	page, err := svc.List(context.Background(), model.PostFilter{Page: math.MaxInt/10 + 1, Limit: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestCategories(t *testing.T) {
	_, cats := newPostService(t)
	ctx := context.Background()

	_, err := cats.Create(ctx, alice, "Science", "")
	assert.ErrorIs(t, err, ErrForbidden)

	c, err := cats.Create(ctx, admin, "  Science Fiction ", "Stories")
	require.NoError(t, err)
	assert.Equal(t, "Science Fiction", c.Name)
	assert.Equal(t, "science-fiction", c.Slug)

	_, err = cats.Create(ctx, admin, "Science Fiction", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	n, err := cats.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = cats.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := cats.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Lifestyle", "Science Fiction", "Technology", "Travel"}, names)
}

func TestPostCreate_WithCategory(t *testing.T) {
	svc, cats := newPostService(t)
	ctx := context.Background()
	c, err := cats.Create(ctx, admin, "Go", "")
	require.NoError(t, err)

	p, err := svc.Create(ctx, alice, PostInput{Title: "t", Content: "c", CategoryID: c.ID})
	require.NoError(t, err)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, c.ID, *p.CategoryID)
	assert.Equal(t, &model.CategorySummary{ID: c.ID, Name: "Go", Slug: "go"}, p.Category)

	empty := ""
	p, err = svc.Update(ctx, alice, p.ID, model.PostPatch{CategoryID: &empty})
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)
	assert.Nil(t, p.Category)
}
