package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const sqlCheckIfEmailExistsQuery = `
SELECT EXISTS(SELECT 1
              FROM users
              WHERE email = $1
                AND deleted_at IS NULL)`

func (s *Store) CheckIfEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, sqlCheckIfEmailExistsQuery, email)
	if err != nil {
		s.logger.Error(ctx, "failed to check email exists", err)
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

const sqlCreateUser = `
INSERT INTO users (email, first_name, last_name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, email, first_name, last_name, password_hash, created_at, updated_at, deleted_at`

func (s *Store) CreateUserOnEmailSignup(
	ctx context.Context, email string, firstName string, lastName string, hashedPassword string) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, sqlCreateUser, email, firstName, lastName, hashedPassword)
	if err != nil {
		s.logger.Error(ctx, "failed to create user", err)
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

const sqlGetUserByEmail = `
SELECT id, email, first_name, last_name, password_hash, created_at, updated_at, deleted_at
FROM users
WHERE email = $1
  AND deleted_at IS NULL`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, sqlGetUserByEmail, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get user by email", err)
		return User{}, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

const sqlGetUserByID = `
SELECT id, email, first_name, last_name, password_hash, created_at, updated_at, deleted_at
FROM users
WHERE id = $1
  AND deleted_at IS NULL`

func (s *Store) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, sqlGetUserByID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get user by id", err)
		return User{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}
