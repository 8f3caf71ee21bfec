package authsvc

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/storefront/internal/domain"
)

// Claims are the JWT claims of an auth token. The subject is the user's email.
type Claims struct {
	Name string      `json:"nombre"`
	Role domain.Role `json:"rol"`
	jwt.RegisteredClaims
}

// Identity returns the identity the token was issued for.
func (c Claims) Identity() domain.Identity {
	return domain.Identity{
		DisplayName: c.Name,
		Email:       c.Subject,
		Role:        c.Role,
	}
}

// ValidateToken verifies an RS256 token's signature, issuer and expiration
// against publicKey. Returns domain.ErrInvalidAuthToken for any validation failure.
func ValidateToken(tokenString, issuer string, publicKey *rsa.PublicKey) (*Claims, error) {
	if tokenString == "" {
		return nil, domain.ErrInvalidAuthToken
	}

	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) {
			return publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("parse token: %w", err))
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidAuthToken)
	}

	return &claims, nil
}
