package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims carried by an access token
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token belongs to staff
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
