// Package service provides the credential and task business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/taskboard/internal/models"
	"github.com/atinyakov/taskboard/internal/repository"
)

var (
	// ErrEmptyCredentials is returned when the username or password is blank.
	ErrEmptyCredentials = errors.New("username and password are required")
	// ErrUserExists is returned by Register for a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given username exists.
	UserExists(ctx context.Context, username string) (bool, error)
	// GetUserByUsername returns repository.ErrUserNotFound when absent.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// CreateUser stores a new user and assigns its id. It returns
	// repository.ErrUserExists when the username is already taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
}

// PasswordHasher hashes passwords and checks them against stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Service implements signup and login by delegating
// to an AuthRepository.
type Service struct {
	// repo performs the data-layer operations.
	repo   AuthRepository
	hasher PasswordHasher
}

// NewAuthService constructs a new Service using the provided repository and hasher.
func NewAuthService(repo AuthRepository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Register creates a user with a hashed password. Usernames are unique: the
// lookup rejects the common case early and CreateUser enforces it atomically.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	exists, err := s.repo.UserExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, username, hash)
	if errors.Is(err, repository.ErrUserExists) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user whose username and password match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
