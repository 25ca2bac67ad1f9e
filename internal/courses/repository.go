package courses

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// ErrBadReference is returned when a course points at a discipline, level
// or teacher that does not exist in the company.
var ErrBadReference = errors.New("courses: referenced entity not found")

// Repository provides PostgreSQL backed persistence for courses.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const courseColumns = `id, company_id, name, discipline_id, level_id, teacher_id, created_at, updated_at`

// List returns the company's courses.
func (r *Repository) List(ctx context.Context, companyID int64) ([]Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE company_id = $1 ORDER BY name, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Get fetches one course in the company scope.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Course, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1 AND company_id = $2`,
		id, companyID)
	c, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Course{}, shared.ErrNotFound
		}
		return Course{}, err
	}
	return c, nil
}

// Create inserts a course.
func (r *Repository) Create(ctx context.Context, c Course) (Course, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO courses (company_id, name, discipline_id, level_id, teacher_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		c.CompanyID, c.Name, c.DisciplineID, c.LevelID, c.TeacherID, now)
	if err := row.Scan(&c.ID); err != nil {
		return Course{}, mapFKError(err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

// Update rewrites a course's mutable fields.
func (r *Repository) Update(ctx context.Context, c Course) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET name = $1, discipline_id = $2, level_id = $3, teacher_id = $4, updated_at = $5
		 WHERE id = $6 AND company_id = $7`,
		c.Name, c.DisciplineID, c.LevelID, c.TeacherID, time.Now().UTC(), c.ID, c.CompanyID)
	if err != nil {
		return mapFKError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a course.
func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCourse(row pgx.Row) (Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.DisciplineID, &c.LevelID, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// mapFKError turns foreign-key violations into ErrBadReference so handlers
// answer 422 instead of 500 when a client sends a stale id.
func mapFKError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrBadReference
	}
	return err
}
