package authsvc

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/infra/logging"
	"github.com/mkrupp/storefront/internal/repo/user"
)

// ErrInvalidRegistration is returned when a registration request is incomplete or malformed.
var ErrInvalidRegistration = errors.New("invalid registration")

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// SigningKeyFile is the path to the RSA private key file
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/storage/authsvc.key"`

	// TokenDuration is the validity of issued tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"1h"`

	// Issuer is the iss claim of issued tokens
	Issuer string `env:"ISSUER" default:"gamezone-authsvc"`

	// PasswordCost is the bcrypt cost used for new passwords
	PasswordCost int `env:"PASSWORD_COST" default:"10"`

	// AdminEmail and AdminPassword seed an ADMIN account at startup when both are set
	AdminEmail    string `env:"ADMIN_EMAIL" default:""`
	AdminPassword string `env:"ADMIN_PASSWORD" default:""`
}

// AuthService provides authentication and user management functionality.
// It handles user registration, login, and token validation.
type AuthService struct {
	Config     AuthConfig
	UserRepo   user.Repository
	Log        logging.Logger
	SigningKey *rsa.PrivateKey
}

// NewAuthService creates a new AuthService with the given user repository factory and configuration.
// Returns an error if the signing key cannot be loaded or the user repository cannot be created.
func NewAuthService(ctx context.Context, repoFactory user.RepositoryFactory, cfg AuthConfig) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	signingKey, err := GetPrivateKey(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("get private key: %w", err)
	}

	userRepo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	svc := &AuthService{
		Config:     cfg,
		UserRepo:   userRepo,
		Log:        log,
		SigningKey: signingKey,
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := svc.seedAdmin(ctx); err != nil {
			_ = userRepo.Close()

			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	return svc, nil
}

func (s *AuthService) seedAdmin(ctx context.Context) error {
	_, err := s.CreateUser(ctx, "Administrador", s.Config.AdminEmail, s.Config.AdminPassword, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		return nil
	}

	return err
}

// RegisterUser creates a new CUSTOMER account.
// Returns an error if the email is already taken or if creation fails.
func (s *AuthService) RegisterUser(ctx context.Context, req domain.RegisterRequest) (domain.RegisteredUser, error) {
	return s.CreateUser(ctx, req.Name, req.Email, req.Password, domain.RoleCustomer)
}

// CreateUser creates an account with the given role. The password is
// hashed with bcrypt before storage.
func (s *AuthService) CreateUser(
	ctx context.Context,
	name, email, password string,
	role domain.Role,
) (registered domain.RegisteredUser, err error) {
	log := s.Log.With(logging.Group("user", "email", email, "role", role))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered", "id", registered.ID)
		}
	}()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	switch {
	case name == "":
		return domain.RegisteredUser{}, fmt.Errorf("%w: missing nombre", ErrInvalidRegistration)
	case password == "":
		return domain.RegisteredUser{}, fmt.Errorf("%w: missing password", ErrInvalidRegistration)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("%w: email: %w", ErrInvalidRegistration, err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost())
	if err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
	}

	if err := s.UserRepo.CreateUser(ctx, u); err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("create user: %w", err)
	}

	return domain.RegisteredUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}, nil
}

func (s *AuthService) passwordCost() int {
	if s.Config.PasswordCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}

	return s.Config.PasswordCost
}

// Login authenticates a user and issues a signed RS256 JWT.
// Returns domain.ErrInvalidCredentials for unknown emails and wrong passwords.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ domain.LoginResponse, err error) {
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	u, ok, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return domain.LoginResponse{}, errors.Join(domain.ErrInvalidCredentials, domain.ErrUserNotFound)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiry := now.Add(s.Config.TokenDuration)

	log = log.With(logging.Group("token",
		"exp", expiry.UTC().Format(time.RFC3339),
		"iat", now.UTC().Format(time.RFC3339),
	))

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Config.Issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}).SignedString(s.SigningKey)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return domain.LoginResponse{
		Token: token,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}, nil
}

// ValidateToken verifies a token's signature and expiration.
// Returns the decoded claims if valid, or an error if validation fails.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (claims *Claims, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "validate token failed", "error", err)
		} else {
			log.DebugContext(ctx, "token validated")
		}
	}()

	claims, err = ValidateToken(tokenString, s.Config.Issuer, &s.SigningKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}

	log = log.With(logging.Group("token",
		"sub", claims.Subject,
		"exp", claims.ExpiresAt.UTC().Format(time.RFC3339),
	))

	return claims, nil
}

// Close releases resources held by the service, such as database connections.
// Returns an error if cleanup fails.
func (s *AuthService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
