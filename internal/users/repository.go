package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository defines persistence operations for user profiles.
type Repository interface {
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	IsMember(ctx context.Context, companyID, userID int64) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListByCompany returns one page of the company's active members along with
// the total member count.
func (r *PGRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT u.id)
		 FROM users u
		 JOIN memberships m ON m.user_id = u.id
		 WHERE m.company_id = $1 AND m.is_active`,
		companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT u.id, u.email, u.name, u.is_active, u.created_at, u.updated_at
		 FROM users u
		 JOIN memberships m ON m.user_id = u.id
		 WHERE m.company_id = $1 AND m.is_active
		 ORDER BY u.name, u.id
		 LIMIT $2 OFFSET $3`,
		companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Get fetches one profile, including the password hash for change checks.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at, updated_at FROM users WHERE id = $1`,
		id)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.passwordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// UpdateProfile changes name and email.
func (r *PGRepository) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, updated_at = $3 WHERE id = $4`,
		name, email, time.Now().UTC(), id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash swaps the stored bcrypt hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IsMember reports whether the user holds an active membership in the
// company. Profile reads inside a company scope are limited to co-members.
func (r *PGRepository) IsMember(ctx context.Context, companyID, userID int64) (bool, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE company_id = $1 AND user_id = $2 AND is_active)`,
		companyID, userID)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

var _ Repository = (*PGRepository)(nil)
