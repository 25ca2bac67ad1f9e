package registrations

import (
	"errors"
	"time"
)

// Status is the registration lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Registration enrolls a student into a class. It starts as a draft,
// becomes confirmed once accepted (which opens a billing subscription) and
// can be cancelled from either state.
type Registration struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	StudentID int64     `json:"student_id"`
	ClassID   int64     `json:"class_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrInvalidTransition is returned when a lifecycle move is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("registrations: invalid status transition")
	// ErrDuplicate is returned when the student already has a live
	// registration for the class.
	ErrDuplicate = errors.New("registrations: student already registered for class")
)
