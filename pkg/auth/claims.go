package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.Role
	SupplierID *uuid.UUID
	// JTI doubles as the session key; a random id is used when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       enums.Role `json:"role"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
	jwt.RegisteredClaims
}
