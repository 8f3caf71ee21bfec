package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProductID is returned when a product id cannot be parsed.
	ErrInvalidProductID = errors.New("invalid product id")
	// ErrMalformedCart is returned when a persisted cart cannot be decoded
	// or violates the line invariants.
	ErrMalformedCart = errors.New("malformed cart")
)

// CartLine is one product entry in the cart with its quantity.
type CartLine struct {
	ID        ProductID `json:"id"`
	Name      string    `json:"nombre"`
	UnitPrice Money     `json:"precio"`
	Quantity  int       `json:"cantidad"`
	ImageRef  string    `json:"imagen,omitempty"`
}

// NewCartLine creates a line for the first unit of product.
func NewCartLine(product Product) CartLine {
	return CartLine{
		ID:        product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  1,
		ImageRef:  product.ImageRef,
	}
}

// Subtotal returns UnitPrice × Quantity.
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Mul(NewMoneyFromInt(l.Quantity))
}

// ValidateCartLines checks the invariants a persisted cart must satisfy:
// unique ids, quantity of at least one and non-negative prices.
func ValidateCartLines(lines []CartLine) error {
	seen := make(map[ProductID]struct{}, len(lines))

	for _, line := range lines {
		if _, ok := seen[line.ID]; ok {
			return fmt.Errorf("%w: duplicate line %s", ErrMalformedCart, line.ID)
		}

		seen[line.ID] = struct{}{}

		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %s has quantity %d", ErrMalformedCart, line.ID, line.Quantity)
		}

		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %s has negative price", ErrMalformedCart, line.ID)
		}
	}

	return nil
}

// CartState is a snapshot of the cart. ItemCount and Total are derived
// from Lines and recomputed after every mutation.
type CartState struct {
	Lines     []CartLine `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     Money      `json:"total"`
	Error     string     `json:"error,omitempty"`
}

// OperationResult reports the outcome of a cart operation to the view layer.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
