package users

import (
	"errors"
	"time"
)

// User is the profile view of an account. The password hash never leaves
// the module.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	passwordHash string
}

var (
	// ErrWrongPassword is returned when the current password check fails on
	// a password change.
	ErrWrongPassword = errors.New("users: wrong password")
	// ErrEmailTaken is returned when an update collides with an existing
	// account email.
	ErrEmailTaken = errors.New("users: email already taken")
)
