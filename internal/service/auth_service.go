package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"user-api/internal/auth"
	"user-api/internal/domain"
	"user-api/internal/repository"
	"user-api/internal/validation"
)

var (
	// ErrInvalidCredentials indicates the password does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// TokenIssuer issues signed identity tokens.
type TokenIssuer interface {
	Issue(claim auth.Claim) (string, time.Time, error)
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService describes login and registration.
type AuthService interface {
	Login(ctx context.Context, creds validation.Credentials) (*LoginResult, error)
	Register(ctx context.Context, reg validation.Registration) (*domain.User, error)
}

type authService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	tokens TokenIssuer
}

func NewAuthService(users repository.UserRepository, hasher auth.PasswordHasher, tokens TokenIssuer) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *authService) Login(ctx context.Context, creds validation.Credentials) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(auth.Claim{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      sanitizeUser(user),
	}, nil
}

// Register hashes the password and inserts the user. Duplicate usernames are
// detected by the store's unique constraint, so two concurrent registrations
// for the same name cannot both succeed.
func (s *authService) Register(ctx context.Context, reg validation.Registration) (*domain.User, error) {
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         reg.Name,
		Username:     reg.Username,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

// sanitizeUser drops the password hash.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
