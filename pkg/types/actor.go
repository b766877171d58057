package types

import "github.com/poltekatipdg/sipbmn-backend/pkg/enums"

// Actor identifies the authenticated caller of a lifecycle operation.
type Actor struct {
	ID               string
	Name             string
	IdentifierNumber string
	Role             enums.UserRole
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}
