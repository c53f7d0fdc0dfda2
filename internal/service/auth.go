package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/utils"
)

// MinPasswordLen is the shortest password accepted at registration and reset.
const MinPasswordLen = 6

// UserStore is the credential store consumed by AuthService.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
	VerifyDummy(plain string)
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(subjectID string) (utils.SessionToken, error)
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  model.User
	Token utils.SessionToken
}

// AuthService implements registration, login and identity lookup.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

// Register creates a standard account and returns it with a fresh session
// token. A taken username or email yields ErrAlreadyExists.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	u, err := s.create(ctx, in, model.RoleStandard)
	if err != nil {
		return AuthResult{}, err
	}
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return AuthResult{User: *u, Token: tok}, nil
}

// CreateAdmin provisions an admin account. It is not reachable over HTTP;
// the seed command calls it.
func (s *AuthService) CreateAdmin(ctx context.Context, in RegisterInput) (model.User, error) {
	u, err := s.create(ctx, in, model.RoleAdmin)
	if err != nil {
		return model.User{}, err
	}
	s.log.InfoContext(ctx, "admin created", "user_id", u.ID)
	return *u, nil
}

func (s *AuthService) create(ctx context.Context, in RegisterInput, role model.Role) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, transient("create user", err)
	}
	return u, nil
}

// Login verifies credentials and issues a session token. An unknown email
// and a wrong password both return ErrInvalidCredentials after the same
// amount of hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, transient("load user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: *u, Token: tok}, nil
}

// Me returns the public view of the account with the given id.
func (s *AuthService) Me(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, transient("load user", err)
	}
	return *u, nil
}

// Identity resolves the subject of a verified token. An account deleted
// after the token was issued yields ErrUnauthenticated.
func (s *AuthService) Identity(ctx context.Context, id string) (model.Identity, error) {
	u, err := s.Me(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Identity{}, ErrUnauthenticated
		}
		return model.Identity{}, err
	}
	return u.Identity(), nil
}

func (in RegisterInput) validate() error {
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 30 {
		return invalid("username must be between 3 and 30 characters")
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("a valid email is required")
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLen {
		return invalid("password must be at least %d characters", MinPasswordLen)
	}
	// bcrypt ignores everything past 72 bytes
	if len(pw) > 72 {
		return invalid("password must be at most 72 bytes")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
