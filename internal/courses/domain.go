package courses

import "time"

// Course ties a discipline at a level to the teacher who delivers it.
type Course struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	Name         string    `json:"name"`
	DisciplineID int64     `json:"discipline_id"`
	LevelID      int64     `json:"level_id"`
	TeacherID    int64     `json:"teacher_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
