// Package repository contains data access logic separated from HTTP handlers.
// This file defines the MySQL post repository. Ownership is not enforced
// here: the service loads the post, checks the caller against AuthorID and
// only then calls Update or Delete.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-api/internal/model"
)

const postColumns = "id,title,content,excerpt,author_id,category_id,status,tags,views,created_at,updated_at"

// postSelect reads a post with its author's username and, when filed, its
// category. Authors cascade on delete, so the inner join never drops a post.
const postSelect = "SELECT p.id,p.title,p.content,p.excerpt,p.author_id,p.category_id,p.status,p.tags,p.views,p.created_at,p.updated_at," +
	"u.username,c.name,c.slug FROM posts p" +
	" JOIN users u ON u.id = p.author_id" +
	" LEFT JOIN categories c ON c.id = p.category_id"

// PostRepo encapsulates all database queries related to posts.
type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{db: db}
}

// Create inserts p, assigning ID and timestamps.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO posts ("+postColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		p.ID, p.Title, p.Content, p.Excerpt, p.AuthorID, p.CategoryID, string(p.Status), tags, p.Views, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetByID fetches a post regardless of status or author. Returns
// ErrNotFound if no row is found.
func (r *PostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, postSelect+" WHERE p.id = ?", id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns one page of posts matching f, newest first, and the total
// number of matching rows.
func (r *PostRepo) List(ctx context.Context, f model.PostFilter) ([]model.Post, int, error) {
	where, args := postWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := postSelect + where + " ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := make([]model.Post, 0, f.Limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, total, rows.Err()
}

// Update writes the mutable columns of p.
func (r *PostRepo) Update(ctx context.Context, p *model.Post) error {
	p.UpdatedAt = time.Now().UTC()
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE posts SET title=?, content=?, excerpt=?, category_id=?, status=?, tags=?, updated_at=? WHERE id=?",
		p.Title, p.Content, p.Excerpt, p.CategoryID, string(p.Status), tags, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a post by id.
func (r *PostRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// IncrementViews bumps the view counter of a post.
func (r *PostRepo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE posts SET views = views + 1 WHERE id=?", id)
	return err
}

func postWhere(f model.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds = append(conds, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if f.CategoryID != "" {
		conds = append(conds, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AuthorID != "" {
		conds = append(conds, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		conds = append(conds, "(p.title LIKE ? OR p.content LIKE ?)")
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		p        model.Post
		category sql.NullString
		status   string
		tags     []byte
		username string
		catName  sql.NullString
		catSlug  sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.AuthorID, &category, &status, &tags, &p.Views, &p.CreatedAt, &p.UpdatedAt,
		&username, &catName, &catSlug); err != nil {
		return nil, err
	}
	p.Author = &model.AuthorSummary{ID: p.AuthorID, Username: username}
	if category.Valid {
		c := category.String
		p.CategoryID = &c
		if catName.Valid {
			p.Category = &model.CategorySummary{ID: c, Name: catName.String, Slug: catSlug.String}
		}
	}
	p.Status = model.PostStatus(status)
	p.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
