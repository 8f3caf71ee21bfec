// Package orderclient talks to the storefront Order API. Requests are
// authenticated by the transport of the http.Client it is given, normally a
// BearerRoundTripper.
package orderclient

import (
	"context"

	"github.com/mkrupp/storefront/internal/domain"
)

// OrderClient submits checkouts and lists orders.
type OrderClient interface {
	// CreateOrder submits the lines as a new order of the logged-in user.
	CreateOrder(ctx context.Context, lines []domain.OrderLine) (domain.Order, error)
	// MyOrders lists the orders of the logged-in user.
	MyOrders(ctx context.Context) ([]domain.Order, error)
	// AllOrders lists every order. Only ADMIN and STAFF users may call it.
	AllOrders(ctx context.Context) ([]domain.Order, error)
}
