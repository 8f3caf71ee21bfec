package orderclient

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
	"github.com/mkrupp/storefront/internal/infra/logging"
)

const ordersPath = "/ordenes"

// HTTPClientConfig holds configuration for the HTTP order client.
type HTTPClientConfig struct {
	// BaseURL is the API root the /ordenes endpoints live under
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080/api/v1"`
}

// HTTPClient implements OrderClient against the storefront REST API.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ OrderClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient. httpClient carries the
// authentication; if nil, http.DefaultClient is used and requests go out anonymous.
func NewHTTPClient(cfg HTTPClientConfig, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.ordersvc.orderclient.http_client"),
		cfg:        cfg,
	}
}

// CreateOrder implements OrderClient.CreateOrder with POST /ordenes.
func (c *HTTPClient) CreateOrder(ctx context.Context, lines []domain.OrderLine) (order domain.Order, err error) {
	defer func() {
		if err != nil {
			c.log.ErrorContext(ctx, "create order failed", "lines", len(lines), "error", err)
		} else {
			c.log.InfoContext(ctx, "order created", "id", order.ID, "lines", len(lines))
		}
	}()

	if len(lines) == 0 {
		return domain.Order{}, fmt.Errorf("%w: empty order", domain.ErrOrderAPI)
	}

	if err := c.do(ctx, http.MethodPost, ordersPath, lines, &order); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// MyOrders implements OrderClient.MyOrders with GET /ordenes/mis-ordenes.
func (c *HTTPClient) MyOrders(ctx context.Context) ([]domain.Order, error) {
	return c.list(ctx, ordersPath+"/mis-ordenes")
}

// AllOrders implements OrderClient.AllOrders with GET /ordenes.
func (c *HTTPClient) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return c.list(ctx, ordersPath)
}

func (c *HTTPClient) list(ctx context.Context, path string) (orders []domain.Order, err error) {
	defer func() {
		if err != nil {
			c.log.ErrorContext(ctx, "list orders failed", "path", path, "error", err)
		} else {
			c.log.DebugContext(ctx, "orders listed", "path", path, "count", len(orders))
		}
	}()

	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(domain.ErrOrderAPI, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		err := fmt.Errorf("%w: status %d: %s", domain.ErrOrderAPI, resp.StatusCode, strings.TrimSpace(string(detail)))

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.Join(domain.ErrNoAuthToken, err)
		case http.StatusForbidden:
			return errors.Join(domain.ErrUnauthorized, err)
		default:
			return err
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(domain.ErrOrderAPI, fmt.Errorf("decode response: %w", err))
	}

	return nil
}
