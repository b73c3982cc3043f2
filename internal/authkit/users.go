package authkit

import (
	"context"
	"strings"
	"time"
)

// Role names shared across the application. Roles are stored on the user
// record and copied verbatim into session claims.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is the application user record as seen by the auth core. The
// repository owns persistence; email uniquely identifies at most one user.
type User struct {
	ID           uint
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUserFields carries everything required to create a user in one atomic
// repository call.
type NewUserFields struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
}

// UserRepository persists and retrieves application users. Implementations
// must enforce email uniqueness and return ErrRepositoryConflict from Create
// when the email already exists. FindByEmail and FindByID return (nil, nil)
// when no record matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	Create(ctx context.Context, fields NewUserFields) (*User, error)
}

// NormalizeEmail lowercases and trims an email so lookups and uniqueness
// checks agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
