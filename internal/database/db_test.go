package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/database/migrations"
)

func TestOptions_DSN(t *testing.T) {
	dsn := Options{User: "blog", Password: "p@ss", Host: "db", Port: "3306", Name: "blog"}.DSN()
	assert.True(t, strings.HasPrefix(dsn, "blog:p@ss@tcp(db:3306)/blog?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestMigrations_AreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_users.sql", "00002_categories.sql", "00003_posts.sql"}, files)

	users, err := fs.ReadFile(migrations.Migrations, "00001_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(users), "chk_users_reset_pair")
}

func TestMigrate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()

	var dir string
	gooseUp = func(_ context.Context, _ *sql.DB, d string) error {
		dir = d
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, ".", dir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	err = Migrate(context.Background(), db)
	assert.EqualError(t, err, "migrate: boom")
}
