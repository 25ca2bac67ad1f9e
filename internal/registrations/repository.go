package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository defines persistence operations for registrations.
type Repository interface {
	List(ctx context.Context, companyID int64) ([]Registration, error)
	ListByStudent(ctx context.Context, companyID, studentID int64) ([]Registration, error)
	Get(ctx context.Context, companyID, id int64) (Registration, error)
	Create(ctx context.Context, reg Registration) (Registration, error)
	UpdateStatus(ctx context.Context, companyID, id int64, from, to Status) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const regColumns = `id, company_id, student_id, class_id, status, created_at, updated_at`

// List returns the company's registrations, newest first.
func (r *PGRepository) List(ctx context.Context, companyID int64) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE company_id = $1 ORDER BY created_at DESC, id DESC`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListByStudent returns one student's registrations in the company.
func (r *PGRepository) ListByStudent(ctx context.Context, companyID, studentID int64) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE company_id = $1 AND student_id = $2 ORDER BY created_at DESC, id DESC`,
		companyID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Get fetches one registration in the company scope.
func (r *PGRepository) Get(ctx context.Context, companyID, id int64) (Registration, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE id = $1 AND company_id = $2`,
		id, companyID)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, shared.ErrNotFound
		}
		return Registration{}, err
	}
	return reg, nil
}

// Create inserts a draft registration. A partial unique index on
// (company_id, student_id, class_id) for non-cancelled rows enforces the
// no-duplicate rule.
func (r *PGRepository) Create(ctx context.Context, reg Registration) (Registration, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO registrations (company_id, student_id, class_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		reg.CompanyID, reg.StudentID, reg.ClassID, StatusDraft, now)
	if err := row.Scan(&reg.ID); err != nil {
		return Registration{}, mapDuplicateError(err)
	}
	reg.Status = StatusDraft
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return reg, nil
}

// UpdateStatus moves a registration from one status to another. The `from`
// filter makes the transition a compare-and-swap: a concurrent move loses
// and gets ErrInvalidTransition rather than silently double-applying.
func (r *PGRepository) UpdateStatus(ctx context.Context, companyID, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET status = $1, updated_at = $2 WHERE id = $3 AND company_id = $4 AND status = $5`,
		to, time.Now().UTC(), id, companyID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		row := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1 AND company_id = $2)`, id, companyID)
		var exists bool
		if scanErr := row.Scan(&exists); scanErr != nil {
			return scanErr
		}
		if !exists {
			return shared.ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

func collect(rows pgx.Rows) ([]Registration, error) {
	var out []Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

func scanRegistration(row pgx.Row) (Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.CompanyID, &reg.StudentID, &reg.ClassID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	return reg, err
}

// mapDuplicateError turns unique violations into ErrDuplicate so handlers
// answer 409 instead of 500 on a repeated registration.
func mapDuplicateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
