package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/taskboard/internal/models"
)

// PostgresAuthRepository stores users in a PostgreSQL table. It is used in
// place of the users file when a database DSN is configured.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// UserExists checks whether a user with the specified username exists in the database.
func (s *PostgresAuthRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	return exists, err
}

// GetUserByUsername loads the user with the given username.
// It returns ErrUserNotFound when no row matches.
func (s *PostgresAuthRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT id, username, password_hash FROM users WHERE username = $1 ORDER BY id LIMIT 1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByUsername: %w", err)
	}
	return &u, nil
}

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// CreateUser inserts a user whose id is one past the current maximum.
// A clash on the username constraint yields ErrUserExists.
func (s *PostgresAuthRepository) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	u := models.User{Username: username, PasswordHash: passwordHash}
	err := s.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (id, username, password_hash)
		 SELECT COALESCE(MAX(id), 0) + 1, $1, $2 FROM users
		 RETURNING id`,
		username, passwordHash,
	).Scan(&u.ID)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint != "users_pkey" {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("CreateUser: %w", err)
	}
	return &u, nil
}
