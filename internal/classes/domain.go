package classes

import "time"

// Classroom is a physical room with a seating capacity.
type Classroom struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Class is a cohort of students for a school year, attached to a level,
// a room and the teacher responsible for it.
type Class struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	LevelID     int64     `json:"level_id"`
	ClassroomID int64     `json:"classroom_id"`
	TeacherID   int64     `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
