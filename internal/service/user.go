// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/usersvc/usersvc/internal/auth"
	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/repository"
)

// Service errors.
var (
	ErrInvalidInput   = errors.New("missing required fields")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrEmailTaken     = errors.New("email already taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("bad credentials")
)

// Store is the persistence interface the service depends on.
// Implemented by *repository.Repository.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUserFlags(ctx context.Context, user *model.User) error
}

// UserService handles user account business logic.
type UserService struct {
	store  Store
	tokens *auth.TokenService
}

// NewUserService creates a new UserService.
func NewUserService(store Store, tokens *auth.TokenService) *UserService {
	return &UserService{
		store:  store,
		tokens: tokens,
	}
}

// RegisterInput defines input for registering a user.
// CreatedAt may be set to backdate a record; zero means now.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
}

// Register hashes the password and creates the user.
// New users are active and non-admin.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if username == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Admin:        false,
		CreatedAt:    input.CreatedAt,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		default:
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	return user, nil
}

// Authenticate checks the credentials and issues a token for the user.
// The active flag is not consulted here: an inactive user can still log in,
// the guard rejects them on protected routes.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrBadCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return "", ErrBadCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

// IssueToken issues an auth token for an already-verified user.
func (s *UserService) IssueToken(userID int64) (string, error) {
	return s.tokens.Issue(userID)
}

// Get retrieves a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List retrieves all users, newest first.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.store.ListUsers(ctx)
}

// SetFlags updates the mutable active/admin flags of a user.
// Nil pointers leave the corresponding flag unchanged.
func (s *UserService) SetFlags(ctx context.Context, id int64, active, admin *bool) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if active != nil {
		user.Active = *active
	}
	if admin != nil {
		user.Admin = *admin
	}

	if err := s.store.UpdateUserFlags(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}
