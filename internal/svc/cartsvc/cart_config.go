package cartsvc

// CartConfig contains configuration parameters for the cart store.
type CartConfig struct {
	// StorageKey is the kv key holding the JSON array of cart lines
	StorageKey string `env:"STORAGE_KEY" default:"cart"`

	// DiscountDomain is the institutional email suffix that earns the discount
	DiscountDomain string `env:"DISCOUNT_DOMAIN" default:"@duocuc.cl"`

	// DiscountRate is the fraction of the total discounted for DiscountDomain emails
	DiscountRate float64 `env:"DISCOUNT_RATE" default:"0.2"`
}

// DefaultCartConfig returns the configuration the storefront ships with.
func DefaultCartConfig() CartConfig {
	return CartConfig{
		StorageKey:     "cart",
		DiscountDomain: "@duocuc.cl",
		DiscountRate:   0.2,
	}
}
