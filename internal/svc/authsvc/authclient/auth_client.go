package authclient

import (
	"context"

	"github.com/mkrupp/storefront/internal/domain"
)

// AuthClient is the consumer side of the Auth API.
type AuthClient interface {
	// Login exchanges email and password for a bearer token and the user's identity.
	// Returns domain.ErrInvalidCredentials if the API rejects the credentials.
	Login(ctx context.Context, email, password string) (domain.LoginResponse, error)

	// Register creates an account.
	// Returns domain.ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisteredUser, error)
}
