package grading

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository defines persistence operations for tasks, submissions and
// grades.
type Repository interface {
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, companyID, id int64) (Task, error)
	ListTasksByClass(ctx context.Context, companyID, classID int64) ([]Task, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, companyID, id int64) error

	ClassTeacher(ctx context.Context, companyID, classID int64) (int64, error)

	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, companyID, id int64) (Submission, error)
	ListSubmissionsByTask(ctx context.Context, companyID, taskID int64) ([]Submission, error)
	ListSubmissionsByStudent(ctx context.Context, companyID, studentID int64) ([]Submission, error)

	CreateGrade(ctx context.Context, g Grade) (Grade, error)
	UpdateGrade(ctx context.Context, g Grade) error
	GetGradeBySubmission(ctx context.Context, companyID, submissionID int64) (Grade, error)
	ListGradesByStudent(ctx context.Context, companyID, studentID int64) ([]Grade, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const taskColumns = `id, company_id, class_id, course_id, title, description, due_at, created_at, updated_at`

// CreateTask inserts a task.
func (r *PGRepository) CreateTask(ctx context.Context, t Task) (Task, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (company_id, class_id, course_id, title, description, due_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		t.CompanyID, t.ClassID, t.CourseID, t.Title, t.Description, t.DueAt.UTC(), now)
	if err := row.Scan(&t.ID); err != nil {
		return Task{}, err
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

// GetTask fetches one task in the company scope.
func (r *PGRepository) GetTask(ctx context.Context, companyID, id int64) (Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND company_id = $2`, id, companyID)
	var t Task
	err := row.Scan(&t.ID, &t.CompanyID, &t.ClassID, &t.CourseID, &t.Title, &t.Description, &t.DueAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, shared.ErrNotFound
		}
		return Task{}, err
	}
	return t, nil
}

// ListTasksByClass returns a class's tasks, next due first.
func (r *PGRepository) ListTasksByClass(ctx context.Context, companyID, classID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE company_id = $1 AND class_id = $2 ORDER BY due_at, id`,
		companyID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.ClassID, &t.CourseID, &t.Title, &t.Description, &t.DueAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask rewrites a task's mutable fields.
func (r *PGRepository) UpdateTask(ctx context.Context, t Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, due_at = $3, updated_at = $4 WHERE id = $5 AND company_id = $6`,
		t.Title, t.Description, t.DueAt.UTC(), time.Now().UTC(), t.ID, t.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (r *PGRepository) DeleteTask(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClassTeacher returns the teacher responsible for a class.
func (r *PGRepository) ClassTeacher(ctx context.Context, companyID, classID int64) (int64, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT teacher_id FROM classes WHERE id = $1 AND company_id = $2`, classID, companyID)
	var teacherID int64
	if err := row.Scan(&teacherID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return teacherID, nil
}

// CreateSubmission inserts a submission. A unique index on
// (task_id, student_id) enforces one submission per student per task.
func (r *PGRepository) CreateSubmission(ctx context.Context, s Submission) (Submission, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (company_id, task_id, student_id, content, submitted_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.CompanyID, s.TaskID, s.StudentID, s.Content, now)
	if err := row.Scan(&s.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Submission{}, ErrDuplicateSubmission
		}
		return Submission{}, err
	}
	s.SubmittedAt = now
	return s, nil
}

// GetSubmission fetches one submission in the company scope.
func (r *PGRepository) GetSubmission(ctx context.Context, companyID, id int64) (Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, company_id, task_id, student_id, content, submitted_at FROM submissions WHERE id = $1 AND company_id = $2`,
		id, companyID)
	var s Submission
	if err := row.Scan(&s.ID, &s.CompanyID, &s.TaskID, &s.StudentID, &s.Content, &s.SubmittedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Submission{}, shared.ErrNotFound
		}
		return Submission{}, err
	}
	return s, nil
}

// ListSubmissionsByTask returns a task's submissions.
func (r *PGRepository) ListSubmissionsByTask(ctx context.Context, companyID, taskID int64) ([]Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, task_id, student_id, content, submitted_at
		 FROM submissions WHERE company_id = $1 AND task_id = $2 ORDER BY submitted_at, id`,
		companyID, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// ListSubmissionsByStudent returns one student's submissions.
func (r *PGRepository) ListSubmissionsByStudent(ctx context.Context, companyID, studentID int64) ([]Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, task_id, student_id, content, submitted_at
		 FROM submissions WHERE company_id = $1 AND student_id = $2 ORDER BY submitted_at DESC, id DESC`,
		companyID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// CreateGrade inserts a grade. A unique index on submission_id enforces
// one grade per submission.
func (r *PGRepository) CreateGrade(ctx context.Context, g Grade) (Grade, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO grades (company_id, submission_id, graded_by, score, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $6) RETURNING id`,
		g.CompanyID, g.SubmissionID, g.GradedBy, g.Score, g.Comment, now)
	if err := row.Scan(&g.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Grade{}, ErrAlreadyGraded
		}
		return Grade{}, err
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	return g, nil
}

// UpdateGrade rewrites score and comment.
func (r *PGRepository) UpdateGrade(ctx context.Context, g Grade) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE grades SET score = $1, comment = NULLIF($2, ''), graded_by = $3, updated_at = $4
		 WHERE id = $5 AND company_id = $6`,
		g.Score, g.Comment, g.GradedBy, time.Now().UTC(), g.ID, g.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetGradeBySubmission fetches the grade of one submission.
func (r *PGRepository) GetGradeBySubmission(ctx context.Context, companyID, submissionID int64) (Grade, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, company_id, submission_id, graded_by, score, COALESCE(comment, ''), created_at, updated_at
		 FROM grades WHERE submission_id = $1 AND company_id = $2`,
		submissionID, companyID)
	var g Grade
	if err := row.Scan(&g.ID, &g.CompanyID, &g.SubmissionID, &g.GradedBy, &g.Score, &g.Comment, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grade{}, shared.ErrNotFound
		}
		return Grade{}, err
	}
	return g, nil
}

// ListGradesByStudent returns all grades of one student's submissions.
func (r *PGRepository) ListGradesByStudent(ctx context.Context, companyID, studentID int64) ([]Grade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.id, g.company_id, g.submission_id, g.graded_by, g.score, COALESCE(g.comment, ''), g.created_at, g.updated_at
		 FROM grades g
		 JOIN submissions s ON s.id = g.submission_id
		 WHERE g.company_id = $1 AND s.student_id = $2
		 ORDER BY g.created_at DESC, g.id DESC`,
		companyID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grades []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.CompanyID, &g.SubmissionID, &g.GradedBy, &g.Score, &g.Comment, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

func collectSubmissions(rows pgx.Rows) ([]Submission, error) {
	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.TaskID, &s.StudentID, &s.Content, &s.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
