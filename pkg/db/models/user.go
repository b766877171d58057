package models

import (
	"time"

	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
)

// User represents an actor: an admin officer or a borrower.
type User struct {
	ID               string         `gorm:"column:id;primaryKey"`
	Username         string         `gorm:"column:username;not null;uniqueIndex"`
	Name             string         `gorm:"column:name;not null"`
	Role             enums.UserRole `gorm:"column:role;type:text;not null"`
	IdentifierNumber string         `gorm:"column:identifier_number"`
	Email            string         `gorm:"column:email;not null;uniqueIndex"`
	AvatarURL        *string        `gorm:"column:avatar_url"`
	PasswordHash     string         `gorm:"column:password_hash;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
