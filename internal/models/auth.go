package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles carried by SSO-issued tokens.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleStaff  UserRole = "STAFF"
	RoleMember UserRole = "MEMBER"
)

// CanManageEvents reports whether the role may create, update or delete
// bookings. Mirrors the staff/admin gate of the scheduling frontend.
func (r UserRole) CanManageEvents() bool {
	return r == RoleAdmin || r == RoleStaff
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
