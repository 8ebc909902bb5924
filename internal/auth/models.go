package auth

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered graduate or staff member.
type Account struct {
	ID           uuid.UUID
	Email        string
	DisplayName  *string
	ClassYear    *int
	IsAdmin      bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Safe strips sensitive fields for response payloads.
func (a Account) Safe() Account {
	a.PasswordHash = ""
	return a
}

// TokenPair bundles access and refresh tokens.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}
