package memberships

import (
	"errors"
	"time"

	"github.com/akademi-app/akademi/internal/authz"
)

// Member is a user seen through their membership in one company, carrying
// the full role set held there.
type Member struct {
	UserID    int64
	CompanyID int64
	Email     string
	Name      string
	Roles     []authz.Role
	CreatedAt time.Time
}

var (
	// ErrAlreadyMember indicates the user already belongs to the company.
	ErrAlreadyMember = errors.New("memberships: user already a member")
	// ErrLastAdmin indicates the operation would leave the company without
	// any ADMIN membership, which is never allowed.
	ErrLastAdmin = errors.New("memberships: company must retain at least one admin")
	// ErrNotMember indicates the user has no membership in the company.
	ErrNotMember = errors.New("memberships: user is not a member")
	// ErrNoRoles indicates an attempt to grant an empty role set.
	ErrNoRoles = errors.New("memberships: at least one role required")
	// ErrInvalidRole indicates an unknown role name in the request.
	ErrInvalidRole = errors.New("memberships: invalid role")
)
