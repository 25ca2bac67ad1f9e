package attendance

import (
	"errors"
	"time"
)

// EntryStatus is a student's state on one sheet.
type EntryStatus string

const (
	StatusPresent EntryStatus = "PRESENT"
	StatusAbsent  EntryStatus = "ABSENT"
	StatusLate    EntryStatus = "LATE"
)

// ValidStatus reports whether s is a known entry status.
func ValidStatus(s EntryStatus) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// Sheet is one class's attendance for one date.
type Sheet struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	ClassID   int64     `json:"class_id"`
	Date      time.Time `json:"date"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is one student's row on a sheet.
type Entry struct {
	StudentID int64       `json:"student_id"`
	Status    EntryStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
}

var (
	// ErrDuplicateSheet is returned when a sheet already exists for the
	// class and date.
	ErrDuplicateSheet = errors.New("attendance: sheet already exists for class and date")
	// ErrBadStatus is returned on an unknown entry status.
	ErrBadStatus = errors.New("attendance: unknown entry status")
)
