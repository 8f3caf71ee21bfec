package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole is returned when a role name is not recognized.
var ErrInvalidRole = errors.New("invalid role")

// Role gates which admin operations and views a user may access.
type Role int

const (
	RoleGuest Role = iota
	RoleCustomer
	RoleStaff
	RoleAdmin
)

//nolint:gochecknoglobals
var roleNames = map[Role]string{
	RoleGuest:    "GUEST",
	RoleCustomer: "CUSTOMER",
	RoleStaff:    "STAFF",
	RoleAdmin:    "ADMIN",
}

// Names used by the storefront API.
//
//nolint:gochecknoglobals
var roleWireNames = map[Role]string{
	RoleGuest:    "INVITADO",
	RoleCustomer: "CLIENTE",
	RoleStaff:    "TRABAJADOR",
	RoleAdmin:    "ADMIN",
}

// ParseRole accepts both the API names (CLIENTE, TRABAJADOR, ADMIN,
// INVITADO) and the canonical names (GUEST, CUSTOMER, STAFF, ADMIN).
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))

	for role, wire := range roleWireNames {
		if name == wire || name == roleNames[role] {
			return role, nil
		}
	}

	return RoleGuest, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// String returns the canonical role name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return fmt.Sprintf("Role(%d)", int(r))
}

// WireName returns the name the storefront API uses for the role.
func (r Role) WireName() string {
	return roleWireNames[r]
}

// MarshalJSON encodes the role with its API name.
func (r Role) MarshalJSON() ([]byte, error) {
	wire, ok := roleWireNames[r]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, int(r))
	}

	//nolint:wrapcheck
	return json.Marshal(wire)
}

// UnmarshalJSON decodes a role from any accepted name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}

	role, err := ParseRole(name)
	if err != nil {
		return err
	}

	*r = role

	return nil
}
