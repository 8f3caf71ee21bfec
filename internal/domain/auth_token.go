package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid or it has expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrUnauthorized is returned when the authenticated user lacks permission.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuthAPI is returned when the Auth API fails for a reason other than
	// invalid credentials or a conflict.
	ErrAuthAPI = errors.New("auth api error")
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login on success.
type LoginResponse struct {
	Token string `json:"token"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Role  Role   `json:"rol"`
}

// UnmarshalJSON rejects a response without a rol. A missing role is never
// read as GUEST.
func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	type plain LoginResponse

	var wire struct {
		plain

		Role *Role `json:"rol"`
	}

	if err := json.Unmarshal(data, &wire); err != nil {
		//nolint:wrapcheck
		return err
	}

	if wire.Role == nil {
		return fmt.Errorf("%w: missing rol", ErrInvalidRole)
	}

	*r = LoginResponse(wire.plain)
	r.Role = *wire.Role

	return nil
}

// Identity returns the identity carried by the response.
func (r LoginResponse) Identity() Identity {
	return Identity{
		DisplayName: r.Name,
		Email:       r.Email,
		Role:        r.Role,
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisteredUser is the created-user payload of POST /auth/register.
type RegisteredUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Role  Role   `json:"rol"`
}
