package authz

import (
	"errors"
	"fmt"
)

// Role is a tenant-scoped permission grouping. The same user can hold
// different roles in different companies.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// ParseRole validates a stored role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return Role(raw), nil
	}
	return "", fmt.Errorf("authz: unknown role %q", raw)
}

// Action enumerates the operations the capability table knows about.
type Action string

const (
	ActionCreate             Action = "create"
	ActionGet                Action = "get"
	ActionUpdate             Action = "update"
	ActionDelete             Action = "delete"
	ActionSubmit             Action = "submit"
	ActionCreateSubscription Action = "create-subscription"
)

// Resource enumerates the kinds of entities an action targets.
type Resource string

const (
	ResourceCourse       Resource = "Course"
	ResourceClass        Resource = "Class"
	ResourceClassroom    Resource = "Classroom"
	ResourceLevel        Resource = "Level"
	ResourceDiscipline   Resource = "Discipline"
	ResourceTask         Resource = "Task"
	ResourceGrade        Resource = "Grade"
	ResourceRegistration Resource = "Registration"
	ResourceCompany      Resource = "Company"
	ResourceUser         Resource = "User"
	ResourceRole         Resource = "Role"
	ResourceAttendance   Resource = "Attendance"
)

// Membership ties a user to a company with the set of roles held there.
// A user may hold several roles within one company; decisions take the
// union of their capabilities.
type Membership struct {
	ActorID   int64
	CompanyID int64
	Roles     []Role
}

// HasRole reports whether the membership includes the given role.
func (m Membership) HasRole(role Role) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	// ErrUnauthenticated indicates the request carries no valid actor identity.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden indicates the actor may not perform the operation. It
	// covers both "not a member of the company" and "member without the
	// capability" so responses do not leak which one applied.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrMembershipNotFound is the resolver-level signal for a missing
	// membership row. It never leaves the package: the guard translates it
	// to ErrForbidden.
	ErrMembershipNotFound = errors.New("authz: membership not found")
)
