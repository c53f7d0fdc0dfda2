package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-api/internal/model"
)

// MemoryUserRepo is an in-process credential store with the same semantics
// as UserRepo, including the atomic match-and-clear of reset tokens. It is
// selected with STORE_BACKEND=memory.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]model.User)}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email || strings.EqualFold(existing.Username, u.Username) {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = cloneUser(*u)
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *MemoryUserRepo) GetByResetTokenHash(_ context.Context, hash string, now time.Time) (*model.User, error) {
	return r.find(func(u model.User) bool { return resetMatches(u, hash, now) })
}

func (r *MemoryUserRepo) SetResetToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	exp := expiresAt.UTC()
	u.ResetTokenHash, u.ResetTokenExpiresAt = &hash, &exp
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepo) ConsumeResetToken(_ context.Context, hash string, now time.Time, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if !resetMatches(u, hash, now) {
			continue
		}
		u.PasswordHash = passwordHash
		u.ResetTokenHash, u.ResetTokenExpiresAt = nil, nil
		u.UpdatedAt = now.UTC()
		r.users[id] = u
		return nil
	}
	return ErrNotFound
}

// Delete removes a user. Tests use it to model an account disappearing
// after a token was issued.
func (r *MemoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func resetMatches(u model.User, hash string, now time.Time) bool {
	return u.HasPendingReset(now) && *u.ResetTokenHash == hash
}

// cloneUser detaches the pointer fields so callers cannot mutate stored state.
func cloneUser(u model.User) model.User {
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		u.ResetTokenHash = &h
	}
	if u.ResetTokenExpiresAt != nil {
		e := *u.ResetTokenExpiresAt
		u.ResetTokenExpiresAt = &e
	}
	return u
}
