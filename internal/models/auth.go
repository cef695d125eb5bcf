package models

import "github.com/golang-jwt/jwt/v5"

// OperatorRole represents the available roles for console access control.
type OperatorRole string

const (
	RoleSuperAdmin OperatorRole = "SUPERADMIN"
	RoleAdmin      OperatorRole = "ADMIN"
	RoleSupport    OperatorRole = "SUPPORT"
)

// JWTClaims represents the JWT payload for operator access tokens. Tokens are
// issued by the platform identity service; this gateway only validates them.
type JWTClaims struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   OperatorRole `json:"role"`
	jwt.RegisteredClaims
}
