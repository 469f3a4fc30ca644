package domain

import (
	"context"
	"errors"
)

// ErrUsernameTaken is the conflict signal of UserRepository.Create.
// Implementations wrap it so callers can check it with errors.Is.
var ErrUsernameTaken = errors.New("username already taken")

// UserRepository defines the data-access contract of the user directory.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only.
type UserRepository interface {
	// Create inserts a new user and returns it with its store-assigned ID.
	// Returns an error wrapping ErrUsernameTaken when the username exists.
	Create(ctx context.Context, username, passwordHash string) (*User, error)

	// GetByUsername returns the user matching the given username.
	// Returns (nil, nil) when no user is found.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns the user with the given ID.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int64) (*User, error)
}
