package auth

import (
	"github.com/angelmondragon/shopcore-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens inside the JWT itself.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// Claims represents the typed JWT issued to clients.
type Claims struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      enums.Role `json:"role"`
	TokenType TokenType  `json:"token_type"`
	jwt.RegisteredClaims
}
