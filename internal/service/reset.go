package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/utils"
)

// DefaultResetTTL is how long a reset secret stays valid.
const DefaultResetTTL = time.Hour

// ResetStore is the part of the credential store used by password resets.
type ResetStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*model.User, error)
	SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error
	// ConsumeResetToken must match the hash and the expiry, write the new
	// password and clear the token as one atomic step.
	ConsumeResetToken(ctx context.Context, hash string, now time.Time, passwordHash string) error
}

// ResetNotifier delivers a plaintext reset secret to the account owner.
type ResetNotifier interface {
	NotifyReset(ctx context.Context, email, secret string) error
}

// PasswordResetService issues and redeems single-use reset secrets.
type PasswordResetService struct {
	users    ResetStore
	hasher   PasswordHasher
	notifier ResetNotifier
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

func NewPasswordResetService(users ResetStore, hasher PasswordHasher, notifier ResetNotifier, ttl time.Duration, log *slog.Logger) *PasswordResetService {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &PasswordResetService{
		users:    users,
		hasher:   hasher,
		notifier: notifier,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// RequestReset stores the hash of a new secret on the account registered
// under email and hands the plaintext to the notifier. An unknown email
// yields ErrNotFound; whether to reveal that is up to the caller.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return transient("load user", err)
	}

	secret, err := utils.NewResetSecret()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.ttl)
	if err := s.users.SetResetToken(ctx, u.ID, utils.HashSecret(secret), expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return transient("store reset token", err)
	}

	if err := s.notifier.NotifyReset(ctx, u.Email, secret); err != nil {
		return transient("send reset email", err)
	}
	s.log.InfoContext(ctx, "password reset requested", "user_id", u.ID, "expires_at", expiresAt)
	return nil
}

// CheckReset reports whether secret is currently redeemable without using it.
func (s *PasswordResetService) CheckReset(ctx context.Context, secret string) error {
	if secret == "" {
		return ErrInvalidOrExpired
	}
	_, err := s.users.GetByResetTokenHash(ctx, utils.HashSecret(secret), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return transient("load reset token", err)
	}
	return nil
}

// CompleteReset sets newPassword on the account holding secret, provided
// the secret has not expired, and invalidates the secret. Wrong, expired
// and already used secrets all yield ErrInvalidOrExpired. When two calls
// race on one secret exactly one succeeds.
func (s *PasswordResetService) CompleteReset(ctx context.Context, secret, newPassword string) error {
	if secret == "" {
		return ErrInvalidOrExpired
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	err = s.users.ConsumeResetToken(ctx, utils.HashSecret(secret), s.now().UTC(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpired
		}
		return transient("consume reset token", err)
	}
	s.log.InfoContext(ctx, "password reset completed")
	return nil
}
