package authsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkrupp/storefront/internal/domain"
	"github.com/mkrupp/storefront/internal/infra/logging"
	http_ "github.com/mkrupp/storefront/internal/infra/transport/http"
)

var (
	// ErrNoEmail is returned when the email is missing from the request.
	ErrNoEmail = errors.New("no email")
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = errors.New("no password")
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// PathPrefix is the API root the /auth endpoints are mounted under
	PathPrefix string `env:"PATH_PREFIX" default:"/api/v1"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for user registration, login, and token introspection.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// It requires an AuthService for handling authentication operations.
func NewHTTPTransport(
	authSvc *AuthService,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	prefix := strings.TrimRight(cfg.PathPrefix, "/")

	ht.mux.HandleFunc("POST "+prefix+"/auth/register", ht.HandleRegister)
	ht.mux.HandleFunc("POST "+prefix+"/auth/login", ht.HandleLogin)
	ht.mux.HandleFunc("GET "+prefix+"/auth/me", ht.HandleMe)

	return ht
}

// ServeHTTP implements http.Handler and serves the auth service endpoints:
// - POST /auth/register: Register a new user
// - POST /auth/login: Login and get an auth token
// - GET /auth/me: Identity of the bearer token.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// HandleRegister processes user registration requests.
// Expects a JSON body {nombre, email, password}.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)

		return fmt.Errorf("decode body: %w", err)
	}

	log = log.With(logging.Group("user", "email", req.Email))

	registered, err := ht.authSvc.RegisterUser(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			writeError(w, http.StatusConflict)
		case errors.Is(err, ErrInvalidRegistration):
			writeError(w, http.StatusBadRequest)
		default:
			writeError(w, http.StatusInternalServerError)
		}

		return fmt.Errorf("register user: %w", err)
	}

	return writeJSON(w, http.StatusCreated, registered)
}

// HandleLogin processes user login requests.
// Expects a JSON body {email, password}.
// Returns {token, nombre, email, rol} on successful login.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest)

		return fmt.Errorf("decode body: %w", err)
	}

	if req.Email == "" {
		writeError(w, http.StatusBadRequest)

		return ErrNoEmail
	}

	log = log.With(logging.Group("user", "email", req.Email))

	if req.Password == "" {
		writeError(w, http.StatusBadRequest)

		return ErrNoPassword
	}

	resp, err := ht.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized)
		} else {
			writeError(w, http.StatusInternalServerError)
		}

		return fmt.Errorf("login user: %w", err)
	}

	return writeJSON(w, http.StatusOK, resp)
}

// HandleMe returns the identity of the bearer token in the Authorization header.
func (ht *HTTPTransport) HandleMe(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleMe(w, r)
}

func (ht *HTTPTransport) handleMe(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user token validation failed", "error", err)
		} else {
			log.DebugContext(ctx, "user token validated")
		}
	}(r.Context())

	tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		writeError(w, http.StatusUnauthorized)

		return domain.ErrNoAuthToken
	}

	claims, err := ht.authSvc.ValidateToken(r.Context(), strings.TrimSpace(tokenString))
	if err != nil {
		writeError(w, http.StatusUnauthorized)

		return fmt.Errorf("validate token: %w", err)
	}

	return writeJSON(w, http.StatusOK, claims.Identity())
}

func writeError(w http.ResponseWriter, status int) {
	_ = writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}
