package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLevels returns the company's levels ordered by ordinal.
func (r *Repository) ListLevels(ctx context.Context, companyID int64) ([]Level, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, name, ordinal, created_at, updated_at FROM levels WHERE company_id = $1 ORDER BY ordinal, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Ordinal, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// CreateLevel inserts a level scoped to the company.
func (r *Repository) CreateLevel(ctx context.Context, level Level) (Level, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO levels (company_id, name, ordinal, created_at, updated_at) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		level.CompanyID, level.Name, level.Ordinal, now)
	if err := row.Scan(&level.ID); err != nil {
		return Level{}, err
	}
	level.CreatedAt = now
	level.UpdatedAt = now
	return level, nil
}

// UpdateLevel updates a level; the company id in the filter keeps tenants
// from reaching across the boundary even with a guessed id.
func (r *Repository) UpdateLevel(ctx context.Context, level Level) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE levels SET name = $1, ordinal = $2, updated_at = $3 WHERE id = $4 AND company_id = $5`,
		level.Name, level.Ordinal, time.Now().UTC(), level.ID, level.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteLevel removes a level.
func (r *Repository) DeleteLevel(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM levels WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListDisciplines returns the company's disciplines ordered by code.
func (r *Repository) ListDisciplines(ctx context.Context, companyID int64) ([]Discipline, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, company_id, code, name, created_at, updated_at FROM disciplines WHERE company_id = $1 ORDER BY code`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var disciplines []Discipline
	for rows.Next() {
		var d Discipline
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Code, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		disciplines = append(disciplines, d)
	}
	return disciplines, rows.Err()
}

// GetDiscipline fetches one discipline in the company scope.
func (r *Repository) GetDiscipline(ctx context.Context, companyID, id int64) (Discipline, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, company_id, code, name, created_at, updated_at FROM disciplines WHERE id = $1 AND company_id = $2`,
		id, companyID)
	var d Discipline
	if err := row.Scan(&d.ID, &d.CompanyID, &d.Code, &d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Discipline{}, shared.ErrNotFound
		}
		return Discipline{}, err
	}
	return d, nil
}

// CreateDiscipline inserts a discipline scoped to the company.
func (r *Repository) CreateDiscipline(ctx context.Context, d Discipline) (Discipline, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO disciplines (company_id, code, name, created_at, updated_at) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		d.CompanyID, d.Code, d.Name, now)
	if err := row.Scan(&d.ID); err != nil {
		return Discipline{}, err
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	return d, nil
}

// UpdateDiscipline updates a discipline.
func (r *Repository) UpdateDiscipline(ctx context.Context, d Discipline) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE disciplines SET code = $1, name = $2, updated_at = $3 WHERE id = $4 AND company_id = $5`,
		d.Code, d.Name, time.Now().UTC(), d.ID, d.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteDiscipline removes a discipline.
func (r *Repository) DeleteDiscipline(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM disciplines WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
