package model

import "github.com/google/uuid"

// Role is the access role of an authenticated caller.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleUser:
		return true
	}
	return false
}

// Principal is the identity the authentication layer vouches for.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// User is the subset of the user record the booking core reads.
type User struct {
	ID        uuid.UUID
	Role      Role
	CompanyID *uuid.UUID
	Balance   Money
}
