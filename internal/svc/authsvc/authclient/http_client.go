package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mkrupp/storefront/internal/domain"
	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
)

const (
	TraceIDHeader     = "X-Request-ID"
	ContentTypeHeader = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// BaseURL is the API root the /auth endpoints live under
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080/api/v1"`
}

// HTTPClient implements AuthClient against the storefront REST API.
// No timeout is applied beyond the caller's context and failures are never retried.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ AuthClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, http.DefaultClient will be used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authsvc.authclient.http_client"),
		cfg:        cfg,
	}
}

// Login implements AuthClient.Login with POST /auth/login.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (resp domain.LoginResponse, err error) {
	log := c.log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login request failed", "error", err)
		} else {
			log.DebugContext(ctx, "login request succeeded", "role", resp.Role.String())
		}
	}()

	if err := c.post(ctx, "/auth/login", domain.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return domain.LoginResponse{}, err
	}

	if resp.Token == "" {
		return domain.LoginResponse{}, fmt.Errorf("%w: empty token in login response", domain.ErrAuthAPI)
	}

	return resp, nil
}

// Register implements AuthClient.Register with POST /auth/register.
func (c *HTTPClient) Register(ctx context.Context, req domain.RegisterRequest) (user domain.RegisteredUser, err error) {
	log := c.log.With(logging.Group("user", "email", req.Email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "register request failed", "error", err)
		} else {
			log.DebugContext(ctx, "register request succeeded", "id", user.ID)
		}
	}()

	if err := c.post(ctx, "/auth/register", req, &user); err != nil {
		return domain.RegisteredUser{}, err
	}

	return user, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set(ContentTypeHeader, ContentTypeJSON)

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(domain.ErrAuthAPI, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// StatusError records a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// statusError maps non-2xx responses onto the domain errors.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.Join(domain.ErrInvalidCredentials, detail)
	case http.StatusConflict:
		return errors.Join(domain.ErrUserAlreadyExists, detail)
	default:
		return errors.Join(domain.ErrAuthAPI, detail)
	}
}
