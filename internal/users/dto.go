package users

import (
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/db/models"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// CreateUserInput captures what an admin supplies for a new account.
type CreateUserInput struct {
	Username         string
	Name             string
	Role             enums.UserRole
	IdentifierNumber string
	Email            string
	Password         string
}

// UpdateUserInput patches a user; nil means unchanged.
type UpdateUserInput struct {
	Name             *string
	Role             *enums.UserRole
	IdentifierNumber *string
	Email            *string
	AvatarURL        *string
	Password         *string
}

// UserView is the API representation of a user. The password hash never
// leaves the service.
type UserView struct {
	ID               string         `json:"id"`
	Username         string         `json:"username"`
	Name             string         `json:"name"`
	Role             enums.UserRole `json:"role"`
	IdentifierNumber string         `json:"identifierNumber,omitempty"`
	Email            string         `json:"email"`
	AvatarURL        *string        `json:"avatarUrl,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// NewUserView maps a stored user onto its API shape.
func NewUserView(user models.User) UserView {
	return UserView{
		ID:               user.ID,
		Username:         user.Username,
		Name:             user.Name,
		Role:             user.Role,
		IdentifierNumber: user.IdentifierNumber,
		Email:            user.Email,
		AvatarURL:        user.AvatarURL,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}

// ImportResult summarizes a bulk CSV import.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
