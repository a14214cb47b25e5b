// Package repository provides persistence for users, tasks, task attachments
// and status labels.
package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/taskboard/internal/models"
)

var (
	// ErrUserNotFound is returned when no user has the requested username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by CreateUser when the username is taken.
	ErrUserExists = errors.New("username already taken")
)

// FileUserRepository keeps the user list in a single JSON document that is
// rewritten on every insert.
type FileUserRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileUserRepository creates a repository backed by the JSON file at path.
// The file is created on first insert.
func NewFileUserRepository(path string) *FileUserRepository {
	return &FileUserRepository{path: path}
}

func (r *FileUserRepository) load() ([]models.User, error) {
	users := []models.User{}
	if err := readJSON(r.path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserExists reports whether a user with the given username is stored.
func (r *FileUserRepository) UserExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// GetUserByUsername returns the first user with the given username.
func (r *FileUserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// CreateUser appends a user with id = max existing id + 1 (1 when empty) and
// rewrites the file. The uniqueness check and the insert happen under one
// lock; a taken username yields ErrUserExists.
func (r *FileUserRepository) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}

	id := 1
	for _, u := range users {
		if u.Username == username {
			return nil, ErrUserExists
		}
		if u.ID >= id {
			id = u.ID + 1
		}
	}

	user := models.User{ID: id, Username: username, PasswordHash: passwordHash}
	users = append(users, user)

	if err := writeJSON(r.path, users); err != nil {
		return nil, err
	}
	return &user, nil
}
