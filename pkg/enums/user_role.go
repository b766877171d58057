package enums

import (
	"fmt"
	"strings"
)

// UserRole gates which lifecycle operations an actor may invoke.
type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleBorrower UserRole = "BORROWER"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleBorrower,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// MapImportRole resolves the role column of a bulk user import. Matching is
// case-insensitive; "USER" is the legacy spelling of BORROWER and anything
// unrecognized defaults to BORROWER.
func MapImportRole(value string) UserRole {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ADMIN":
		return UserRoleAdmin
	default:
		return UserRoleBorrower
	}
}
