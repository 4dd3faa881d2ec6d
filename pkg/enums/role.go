package enums

import (
	"fmt"
	"strings"
)

// Role is the account-level role carried in access tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSupplier Role = "SUPPLIER"
	RoleViewer   Role = "VIEWER"
)

var validRoles = []Role{RoleAdmin, RoleSupplier, RoleViewer}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid role %q", value)
}
