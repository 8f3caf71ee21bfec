// Package storefront serves the cart and session stores to the view layer
// as a JSON API.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkrupp/storefront/internal/domain"
	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
	http_ "github.com/mkrupp/storefront/internal/infra/transport/http"
	"github.com/mkrupp/storefront/internal/svc/cartsvc"
	"github.com/mkrupp/storefront/internal/svc/ordersvc/orderclient"
	"github.com/mkrupp/storefront/internal/svc/sessionsvc"
)

const (
	// MsgEmptyCart is reported when checking out an empty cart.
	MsgEmptyCart = "El carrito está vacío"
	// MsgOrderFailed is reported when the Order API rejects a checkout.
	MsgOrderFailed = "Error al procesar la orden"
)

var (
	// ErrBadRequest is returned when a request body or path parameter is invalid.
	ErrBadRequest = errors.New("bad request")
	// ErrUpstream is returned when an upstream API call fails.
	ErrUpstream = errors.New("upstream error")
)

// HTTPTransportConfig contains configuration parameters for the storefront HTTP transport.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// MaxBodyBytes limits the size of request bodies
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" default:"65536"`
}

// HTTPTransport exposes the storefront stores over HTTP.
type HTTPTransport struct {
	cart    *cartsvc.CartService
	session *sessionsvc.SessionService
	orders  orderclient.OrderClient
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates the transport and registers its routes.
func NewHTTPTransport(
	cart *cartsvc.CartService,
	session *sessionsvc.SessionService,
	orders orderclient.OrderClient,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		cart:    cart,
		session: session,
		orders:  orders,
		log:     logging.GetLogger("svc.storefront.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	ht.routes()

	return ht
}

// routes registers the endpoints:
// - GET /api/cart, POST /api/cart/items, PUT|DELETE /api/cart/items/{id}, DELETE /api/cart
// - GET /api/cart/summary
// - GET /api/session, POST /api/session/{login,logout,register}
// - POST /api/checkout, GET /api/orders/mine (logged in)
// - GET /api/admin/orders (ADMIN or STAFF).
func (ht *HTTPTransport) routes() {
	loggedIn := func(h http.HandlerFunc) http.Handler {
		return http_.RequireLogin(h, ht.session, ht.log)
	}

	ht.mux.HandleFunc("GET /api/cart", ht.HandleGetCart)
	ht.mux.HandleFunc("POST /api/cart/items", ht.HandleAddItem)
	ht.mux.HandleFunc("PUT /api/cart/items/{id}", ht.HandleUpdateQuantity)
	ht.mux.HandleFunc("DELETE /api/cart/items/{id}", ht.HandleRemoveItem)
	ht.mux.HandleFunc("DELETE /api/cart", ht.HandleClearCart)
	ht.mux.HandleFunc("GET /api/cart/summary", ht.HandleCartSummary)

	ht.mux.HandleFunc("GET /api/session", ht.HandleGetSession)
	ht.mux.HandleFunc("POST /api/session/login", ht.HandleLogin)
	ht.mux.HandleFunc("POST /api/session/logout", ht.HandleLogout)
	ht.mux.HandleFunc("POST /api/session/register", ht.HandleRegister)

	ht.mux.Handle("POST /api/checkout", loggedIn(ht.HandleCheckout))
	ht.mux.Handle("GET /api/orders/mine", loggedIn(ht.HandleMyOrders))
	ht.mux.Handle("GET /api/admin/orders", http_.RequireRole(
		http.HandlerFunc(ht.HandleAllOrders), ht.session, ht.log, domain.RoleAdmin, domain.RoleStaff,
	))
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

type cartResponse struct {
	domain.OperationResult
	Cart domain.CartState `json:"cart"`
}

type summaryResponse struct {
	Email    string       `json:"email,omitempty"`
	Subtotal domain.Money `json:"subtotal"`
	Discount domain.Money `json:"discount"`
	Total    domain.Money `json:"total"`
}

type quantityRequest struct {
	Quantity *int `json:"cantidad"`
}

type registerResponse struct {
	domain.OperationResult
	User *domain.RegisteredUser `json:"user,omitempty"`
}

type checkoutResponse struct {
	domain.OperationResult
	Order domain.Order     `json:"order"`
	Cart  domain.CartState `json:"cart"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleGetCart returns the cart snapshot.
func (ht *HTTPTransport) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	ht.writeJSON(r.Context(), w, http.StatusOK, ht.cart.State())
}

// HandleAddItem adds one unit of the product in the request body.
func (ht *HTTPTransport) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleAddItem(w, r)
}

func (ht *HTTPTransport) handleAddItem(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "add item failed", "error", err)
		}
	}(r.Context())

	var product domain.Product
	if err := ht.decode(w, r, &product); err != nil {
		return err
	}

	if err := validateProduct(product); err != nil {
		ht.writeError(r.Context(), w, http.StatusBadRequest, err.Error())

		return err
	}

	result := ht.cart.AddItem(r.Context(), product)
	ht.writeJSON(r.Context(), w, http.StatusOK, cartResponse{OperationResult: result, Cart: ht.cart.State()})

	return nil
}

func validateProduct(product domain.Product) error {
	switch {
	case product.ID <= 0:
		return fmt.Errorf("%w: %w", ErrBadRequest, domain.ErrInvalidProductID)
	case strings.TrimSpace(product.Name) == "":
		return fmt.Errorf("%w: missing nombre", ErrBadRequest)
	case product.Price.IsNegative():
		return fmt.Errorf("%w: negative precio", ErrBadRequest)
	default:
		return nil
	}
}

// HandleUpdateQuantity sets the quantity of a line. Zero or less removes it.
func (ht *HTTPTransport) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateQuantity(w, r)
}

func (ht *HTTPTransport) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "update quantity failed", "error", err)
		}
	}(r.Context())

	id, err := ht.productID(w, r)
	if err != nil {
		return err
	}

	var req quantityRequest
	if err := ht.decode(w, r, &req); err != nil {
		return err
	}

	if req.Quantity == nil {
		ht.writeError(r.Context(), w, http.StatusBadRequest, "missing cantidad")

		return fmt.Errorf("%w: missing cantidad", ErrBadRequest)
	}

	result := ht.cart.UpdateQuantity(r.Context(), id, *req.Quantity)
	ht.writeJSON(r.Context(), w, http.StatusOK, cartResponse{OperationResult: result, Cart: ht.cart.State()})

	return nil
}

// HandleRemoveItem drops a line.
func (ht *HTTPTransport) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := ht.productID(w, r)
	if err != nil {
		return
	}

	result := ht.cart.RemoveItem(r.Context(), id)
	ht.writeJSON(r.Context(), w, http.StatusOK, cartResponse{OperationResult: result, Cart: ht.cart.State()})
}

// HandleClearCart empties the cart.
func (ht *HTTPTransport) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	result := ht.cart.Clear(r.Context())
	ht.writeJSON(r.Context(), w, http.StatusOK, cartResponse{OperationResult: result, Cart: ht.cart.State()})
}

// HandleCartSummary reports the total and the discount of the logged-in
// user, or of the email query parameter when nobody is logged in.
func (ht *HTTPTransport) HandleCartSummary(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	if identity, ok := ht.session.Identity(); ok {
		email = identity.Email
	}

	ht.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{
		Email:    email,
		Subtotal: ht.cart.Total(),
		Discount: ht.cart.DiscountFor(email),
		Total:    ht.cart.TotalWithDiscount(email),
	})
}

// HandleGetSession returns the session snapshot. The credential is never included.
func (ht *HTTPTransport) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ht.writeJSON(r.Context(), w, http.StatusOK, ht.session.State())
}

// HandleLogin logs in with the credentials in the request body.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := ht.decode(w, r, &req); err != nil {
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		ht.writeError(r.Context(), w, http.StatusBadRequest, "email and password are required")

		return
	}

	result := ht.session.Login(r.Context(), req.Email, req.Password)

	status := http.StatusOK

	switch {
	case result.Superseded:
		status = http.StatusConflict
	case result.Success:
	case result.Message == sessionsvc.MsgInvalidCredentials:
		status = http.StatusUnauthorized
	default:
		status = http.StatusBadGateway
	}

	ht.writeJSON(r.Context(), w, status, result)
}

// HandleLogout ends the session.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ht.session.Logout(r.Context())
	ht.writeJSON(r.Context(), w, http.StatusOK, ht.session.State())
}

// HandleRegister creates an account through the Auth API.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := ht.decode(w, r, &req); err != nil {
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		ht.writeError(r.Context(), w, http.StatusBadRequest, "nombre, email and password are required")

		return
	}

	user, result := ht.session.Register(r.Context(), req.Name, req.Email, req.Password)

	switch {
	case result.Success:
		ht.writeJSON(r.Context(), w, http.StatusCreated, registerResponse{OperationResult: result, User: &user})
	case result.Message == sessionsvc.MsgEmailTaken:
		ht.writeJSON(r.Context(), w, http.StatusConflict, registerResponse{OperationResult: result})
	default:
		ht.writeJSON(r.Context(), w, http.StatusBadGateway, registerResponse{OperationResult: result})
	}
}

// HandleCheckout submits the cart as an order. On success the ordered lines
// leave the cart; anything added while the order was in flight stays.
func (ht *HTTPTransport) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCheckout(w, r)
}

func (ht *HTTPTransport) handleCheckout(w http.ResponseWriter, r *http.Request) (err error) {
	email, _ := context_.UserEmailFromContext(r.Context())
	log := ht.log.With(logging.Group("user", "email", email))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "checkout failed", "error", err)
		} else {
			log.InfoContext(ctx, "checkout completed")
		}
	}(r.Context())

	lines := ht.cart.Lines()
	if len(lines) == 0 {
		ht.writeJSON(r.Context(), w, http.StatusBadRequest, domain.OperationResult{Success: false, Message: MsgEmptyCart})

		return fmt.Errorf("%w: empty cart", ErrBadRequest)
	}

	ordered := domain.OrderLinesFromCart(lines)

	order, err := ht.orders.CreateOrder(r.Context(), ordered)
	if err != nil {
		ht.writeJSON(r.Context(), w, upstreamStatus(err), domain.OperationResult{Success: false, Message: MsgOrderFailed})

		return fmt.Errorf("create order: %w", err)
	}

	result := ht.cart.RemoveOrdered(r.Context(), ordered)

	ht.writeJSON(r.Context(), w, http.StatusCreated, checkoutResponse{
		OperationResult: result,
		Order:           order,
		Cart:            ht.cart.State(),
	})

	return nil
}

// HandleMyOrders lists the orders of the logged-in user.
func (ht *HTTPTransport) HandleMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := ht.orders.MyOrders(r.Context())
	ht.writeOrders(w, r, orders, err)
}

// HandleAllOrders lists every order.
func (ht *HTTPTransport) HandleAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := ht.orders.AllOrders(r.Context())
	ht.writeOrders(w, r, orders, err)
}

func (ht *HTTPTransport) writeOrders(w http.ResponseWriter, r *http.Request, orders []domain.Order, err error) {
	if err != nil {
		ht.log.ErrorContext(r.Context(), "list orders failed", "error", err)
		ht.writeError(r.Context(), w, upstreamStatus(err), http.StatusText(upstreamStatus(err)))

		return
	}

	ht.writeJSON(r.Context(), w, http.StatusOK, orders)
}

// upstreamStatus maps Order API errors onto the status returned to the view.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoAuthToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func (ht *HTTPTransport) productID(w http.ResponseWriter, r *http.Request) (domain.ProductID, error) {
	id, err := domain.ParseProductID(r.PathValue("id"))
	if err != nil {
		ht.writeError(r.Context(), w, http.StatusBadRequest, err.Error())

		return 0, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return id, nil
}

func (ht *HTTPTransport) decode(w http.ResponseWriter, r *http.Request, out any) error {
	if ht.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodyBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		ht.writeError(r.Context(), w, http.StatusBadRequest, "invalid JSON body")

		return fmt.Errorf("%w: decode body: %w", ErrBadRequest, err)
	}

	return nil
}

func (ht *HTTPTransport) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	ht.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (ht *HTTPTransport) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		ht.log.ErrorContext(ctx, "encode response failed", "error", err)
	}
}
