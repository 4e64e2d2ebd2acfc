package auth

import (
	"github.com/agentdeck/agentdeck-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is the data minted into an access token by the identity
// service. This service only verifies tokens; minting lives here so tests can
// produce valid credentials.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     enums.MemberRole
	JTI      string
}

// AccessTokenClaims are the typed JWT claims for platform sessions.
type AccessTokenClaims struct {
	UserID   uuid.UUID        `json:"uid"`
	TenantID *uuid.UUID       `json:"tid,omitempty"`
	Role     enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
