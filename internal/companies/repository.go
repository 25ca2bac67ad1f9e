package companies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository defines persistence operations for companies.
type Repository interface {
	CreateWithOwner(ctx context.Context, company Company, ownerID int64) (Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	Update(ctx context.Context, company Company) (Company, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// CreateWithOwner inserts the company and its first ADMIN membership in one
// transaction, so a company can never exist without an admin.
func (r *repository) CreateWithOwner(ctx context.Context, company Company, ownerID int64) (Company, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Company{}, fmt.Errorf("companies: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	row := tx.QueryRow(ctx,
		`INSERT INTO companies (name, address, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $4) RETURNING id`,
		company.Name, company.Address, company.Phone, now)
	if err := row.Scan(&company.ID); err != nil {
		return Company{}, fmt.Errorf("companies: insert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO memberships (company_id, user_id, role, is_active, created_at) VALUES ($1, $2, 'ADMIN', TRUE, $3)`,
		company.ID, ownerID, now); err != nil {
		return Company{}, fmt.Errorf("companies: seed admin: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Company{}, fmt.Errorf("companies: commit: %w", err)
	}
	company.CreatedAt = now
	company.UpdatedAt = now
	return company, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, address, phone, created_at, updated_at FROM companies WHERE id = $1`, id)
	var c Company
	if err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, company Company) (Company, error) {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE companies SET name = $1, address = $2, phone = $3, updated_at = $4 WHERE id = $5`,
		company.Name, company.Address, company.Phone, now, company.ID)
	if err != nil {
		return Company{}, err
	}
	if tag.RowsAffected() == 0 {
		return Company{}, shared.ErrNotFound
	}
	company.UpdatedAt = now
	return company, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*repository)(nil)
