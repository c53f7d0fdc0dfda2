package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var postCols = []string{"id", "title", "content", "excerpt", "author_id", "category_id", "status", "tags", "views", "created_at", "updated_at",
	"username", "name", "slug"}

func TestPostRepo_List_BuildsFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM posts p WHERE p\.status = \? AND p\.author_id = \? AND \(p\.title LIKE \? OR p\.content LIKE \?\)$`).
		WithArgs("published", "a-1", `%50\%%`, `%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM posts p JOIN users u ON u\.id = p\.author_id LEFT JOIN categories c .* ORDER BY p\.created_at DESC LIMIT \? OFFSET \?$`).
		WithArgs("published", "a-1", `%50\%%`, `%50\%%`, 5, 5).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow("p-1", "50% off", "body", "", "a-1", nil, "published", `["go","sql"]`, 3, now, now, "alice", nil, nil))

	posts, total, err := repo.List(context.Background(), model.PostFilter{
		Status: model.PostPublished, AuthorID: "a-1", Search: "50%", Page: 2, Limit: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"go", "sql"}, posts[0].Tags)
	assert.Nil(t, posts[0].CategoryID)
	assert.Nil(t, posts[0].Category)
	assert.Equal(t, &model.AuthorSummary{ID: "a-1", Username: "alice"}, posts[0].Author)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_GetByID_JoinsAuthorAndCategory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`LEFT JOIN categories c ON c\.id = p\.category_id WHERE p\.id = \?$`).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow("p-1", "Dune", "sand", "", "a-1", "c-1", "published", `[]`, 0, now, now, "alice", "Travel", "travel"))

	p, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, &model.AuthorSummary{ID: "a-1", Username: "alice"}, p.Author)
	assert.Equal(t, &model.CategorySummary{ID: "c-1", Name: "Travel", Slug: "travel"}, p.Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepo(db)

	mock.ExpectQuery(`WHERE p\.id = \?`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostRepo_UpdateAndDelete_NoRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepo(db)

	mock.ExpectExec(`^UPDATE posts SET title=\?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM posts WHERE id=\?$`).WithArgs("p-9").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), &model.Post{ID: "p-9", Status: model.PostDraft}), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "p-9"), ErrNotFound)
}

func TestCategoryRepo_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectExec(`^INSERT INTO categories`).
		WithArgs(sqlmock.AnyArg(), "Travel", "travel", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	err := repo.Create(context.Background(), &model.Category{Name: "Travel", Slug: "travel"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCategoryRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY name ASC$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "created_at", "updated_at"}).
			AddRow("c1", "Lifestyle", "lifestyle", "", now, now).
			AddRow("c2", "Technology", "technology", "tech", now, now))

	cats, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "technology", cats[1].Slug)
}
