package domain

import (
	"strconv"
)

// ProductID identifies a catalog product.
type ProductID int64

// String returns the decimal representation of the ProductID.
func (id ProductID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseProductID parses a decimal product id, as found in URL paths.
func ParseProductID(s string) (ProductID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidProductID
	}

	return ProductID(id), nil
}

// Product is the subset of a catalog product the cart needs.
// It is validated by the caller before it reaches the cart.
type Product struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"nombre"`
	Price    Money     `json:"precio"`
	ImageRef string    `json:"imagen,omitempty"`
}
