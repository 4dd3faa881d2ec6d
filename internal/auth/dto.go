package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SessionUser is the identity returned after login.
type SessionUser struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       enums.Role `json:"role"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
}

// LoginResponse carries the bearer token and the logged-in identity.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        SessionUser `json:"user"`
}
