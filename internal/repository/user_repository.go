package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-api/internal/model"
)

const userColumns = "id,username,email,password_hash,role,reset_token_hash,reset_token_expires_at,created_at,updated_at"

// UserRepo is the MySQL credential store backing the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u. ID and timestamps are assigned when empty. A collision
// on username or email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = normalizeEmail(u.Email)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,username,email,password_hash,role,created_at,updated_at) VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role.String(), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByResetTokenHash returns the user holding an unexpired reset token with
// the given hash.
func (r *UserRepo) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE reset_token_hash=? AND reset_token_expires_at>? LIMIT 1",
		hash, now.UTC())
}

// SetResetToken stores a reset token hash and expiry for the user. Only the
// reset columns are written.
func (r *UserRepo) SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=?, reset_token_expires_at=?, updated_at=? WHERE id=?",
		hash, expiresAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ConsumeResetToken replaces the password of the user whose unexpired reset
// token matches hash and clears the token, in one statement. When no row
// matches (wrong secret, expired, or already consumed) it returns
// ErrNotFound.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, hash string, now time.Time, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, reset_token_hash=NULL, reset_token_expires_at=NULL, updated_at=?
		 WHERE reset_token_hash=? AND reset_token_expires_at>?`,
		passwordHash, now.UTC(), hash, now.UTC())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *UserRepo) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var (
		u         model.User
		role      string
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return nil, err
	}
	if resetHash.Valid && resetExp.Valid {
		h, exp := resetHash.String, resetExp.Time
		u.ResetTokenHash, u.ResetTokenExpiresAt = &h, &exp
	}
	return &u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
