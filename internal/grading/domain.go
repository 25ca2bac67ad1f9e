package grading

import (
	"errors"
	"time"
)

// Task is an assignment given to a class.
type Task struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	ClassID     int64     `json:"class_id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submission is a student's answer to a task.
type Submission struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	TaskID      int64     `json:"task_id"`
	StudentID   int64     `json:"student_id"`
	Content     string    `json:"content"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Grade is the mark given to one submission.
type Grade struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	SubmissionID int64     `json:"submission_id"`
	GradedBy     int64     `json:"graded_by"`
	Score        float64   `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor carries the identity facts the service needs for instance-level
// ownership checks. The capability table has already been consulted by the
// handler; these checks narrow, never widen.
type Actor struct {
	ID      int64
	Admin   bool
	Teacher bool
	Student bool
}

var (
	// ErrNotClassOwner is returned when a teacher touches a task of a class
	// they are not responsible for.
	ErrNotClassOwner = errors.New("grading: task belongs to another teacher's class")
	// ErrNotOwnSubmission is returned when a student acts on someone else's
	// submission.
	ErrNotOwnSubmission = errors.New("grading: not your submission")
	// ErrDuplicateSubmission is returned when a student re-submits a task.
	ErrDuplicateSubmission = errors.New("grading: task already submitted")
	// ErrAlreadyGraded is returned on a second grade for one submission.
	ErrAlreadyGraded = errors.New("grading: submission already graded")
	// ErrScoreRange is returned when a score falls outside [0, 100].
	ErrScoreRange = errors.New("grading: score out of range")
)
