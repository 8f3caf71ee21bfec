package domain

import "github.com/shopspring/decimal"

//nolint:gochecknoinits
func init() {
	// The storefront API and the persisted cart carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money is the decimal type used for prices and totals.
type Money = decimal.Decimal

// Zero is the zero Money value.
//
//nolint:gochecknoglobals
var Zero = decimal.Zero

// NewMoneyFromInt returns n as Money.
func NewMoneyFromInt(n int) Money {
	return decimal.NewFromInt(int64(n))
}
