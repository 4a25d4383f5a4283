package models

import (
	"time"
)

// Roles
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

type User struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Role              string // "client" or "admin"
	TokenKey          string // Per-user secret mixed into access token signatures
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsAdmin reports whether the user is staff
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
