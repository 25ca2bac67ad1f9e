package auth

import "time"

// User represents an authenticated user account. Accounts are global;
// company access comes from memberships, never from the account itself.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
