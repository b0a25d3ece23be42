package domain

import "time"

// UserRole is the staff role used for authorization.
type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleManager  UserRole = "MANAGER"
	UserRoleOperator UserRole = "OPERATOR"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleManager, UserRoleOperator:
		return true
	}
	return false
}

// User is a staff account that can be assigned tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
