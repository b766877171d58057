package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID           string
	Name             string
	Role             enums.UserRole
	IdentifierNumber string
	JTI              string
}

// AccessTokenClaims represents the typed JWT issued to clients. The identifier
// number rides along so approvals can stamp the officer without a lookup.
type AccessTokenClaims struct {
	UserID           string         `json:"user_id"`
	Name             string         `json:"name"`
	Role             enums.UserRole `json:"role"`
	IdentifierNumber string         `json:"identifier_number,omitempty"`
	jwt.RegisteredClaims
}
