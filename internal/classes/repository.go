package classes

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// ErrBadReference is returned when a class points at a level, classroom or
// teacher that does not exist in the company.
var ErrBadReference = errors.New("classes: referenced entity not found")

// Repository provides PostgreSQL backed persistence for classes and rooms.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListClassrooms returns the company's rooms.
func (r *Repository) ListClassrooms(ctx context.Context, companyID int64) ([]Classroom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, name, capacity, created_at, updated_at FROM classrooms WHERE company_id = $1 ORDER BY name, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Classroom
	for rows.Next() {
		var c Classroom
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Capacity, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateClassroom inserts a room.
func (r *Repository) CreateClassroom(ctx context.Context, c Classroom) (Classroom, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO classrooms (company_id, name, capacity, created_at, updated_at) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		c.CompanyID, c.Name, c.Capacity, now)
	if err := row.Scan(&c.ID); err != nil {
		return Classroom{}, err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

// UpdateClassroom updates a room.
func (r *Repository) UpdateClassroom(ctx context.Context, c Classroom) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classrooms SET name = $1, capacity = $2, updated_at = $3 WHERE id = $4 AND company_id = $5`,
		c.Name, c.Capacity, time.Now().UTC(), c.ID, c.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteClassroom removes a room.
func (r *Repository) DeleteClassroom(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM classrooms WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const classColumns = `id, company_id, name, year, level_id, classroom_id, teacher_id, created_at, updated_at`

// ListClasses returns the company's classes, newest school year first.
func (r *Repository) ListClasses(ctx context.Context, companyID int64) ([]Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes WHERE company_id = $1 ORDER BY year DESC, name`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClass fetches one class in the company scope.
func (r *Repository) GetClass(ctx context.Context, companyID, id int64) (Class, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id = $1 AND company_id = $2`,
		id, companyID)
	c, err := scanClass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Class{}, shared.ErrNotFound
		}
		return Class{}, err
	}
	return c, nil
}

// CreateClass inserts a class.
func (r *Repository) CreateClass(ctx context.Context, c Class) (Class, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO classes (company_id, name, year, level_id, classroom_id, teacher_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		c.CompanyID, c.Name, c.Year, c.LevelID, c.ClassroomID, c.TeacherID, now)
	if err := row.Scan(&c.ID); err != nil {
		return Class{}, mapFKError(err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

// UpdateClass rewrites a class's mutable fields.
func (r *Repository) UpdateClass(ctx context.Context, c Class) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes SET name = $1, year = $2, level_id = $3, classroom_id = $4, teacher_id = $5, updated_at = $6
		 WHERE id = $7 AND company_id = $8`,
		c.Name, c.Year, c.LevelID, c.ClassroomID, c.TeacherID, time.Now().UTC(), c.ID, c.CompanyID)
	if err != nil {
		return mapFKError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteClass removes a class.
func (r *Repository) DeleteClass(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM classes WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanClass(row pgx.Row) (Class, error) {
	var c Class
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Year, &c.LevelID, &c.ClassroomID, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapFKError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrBadReference
	}
	return err
}
