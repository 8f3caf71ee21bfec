package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User represents an account known to the Auth API.
type User struct {
	ID           int64  // Unique identifier
	Email        string // Login email
	Name         string // Display name
	Role         Role   // Access role
	PasswordHash []byte // Hashed password
	CreatedAt    int64  // Unix timestamp of account creation
}

// Identity returns the public identity of the user.
func (u User) Identity() Identity {
	return Identity{
		DisplayName: u.Name,
		Email:       u.Email,
		Role:        u.Role,
	}
}
