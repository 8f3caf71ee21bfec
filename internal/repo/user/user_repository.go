package user

import (
	"context"

	"github.com/mkrupp/storefront/internal/domain"
)

// Repository defines the interface for user account persistence.
type Repository interface {
	// CreateUser adds a new user and sets its ID and CreatedAt.
	// Returns ErrUserAlreadyExists if the email is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail retrieves a user by email, compared case-insensitively.
	// Returns the user and true if found, or nil and false if not found.
	// Returns an error if the operation fails.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)
