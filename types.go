package tokenguard

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenguard/jwt"
)

// Roles known to the directory. Role semantics are left to callers.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
	RoleGuest    = "guest"

	DefaultRole = RoleCustomer
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCustomer, RoleGuest:
		return true
	default:
		return false
	}
}

// Claims is the decoded body of a session token.
type Claims = jwt.Claims

// UserRecord is a stored account. PasswordHash is never plaintext and
// Fingerprint is the single live fingerprint for the user.
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Fingerprint  string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser is the input to UserDirectory.InsertUser. Password is plaintext and
// is hashed by the directory.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// UserUpdate carries optional field changes. A non-nil Password is hashed.
// A non-nil Password or Email rotates the user's fingerprint.
type UserUpdate struct {
	Password  *string
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
}

// UserDirectory is the account store consulted during signin and on every
// authenticated request.
//
// GetUser and FindByUsername return ErrUserNotFound for absent users.
// InsertUser returns ErrDuplicateUser when the username or email is taken;
// it assigns the id, default role, password hash and initial fingerprint.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (UserRecord, error)
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
	InsertUser(ctx context.Context, user NewUser) (string, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) error
}

// SignupRequest is the profile accepted by Signup.
type SignupRequest struct {
	Username  string `json:"username" validate:"required,min=6"`
	Password  string `json:"password" validate:"required,min=8"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,min=3"`
	LastName  string `json:"lastName" validate:"required,min=3"`
	Role      string `json:"role" validate:"omitempty,oneof=admin customer guest"`
}

// SignupResult is returned by a successful Signup.
type SignupResult struct {
	UserID string
	Token  string
}
