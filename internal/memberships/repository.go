package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/authz"
)

// Repository provides PostgreSQL backed persistence for memberships.
type Repository interface {
	ListMembers(ctx context.Context, companyID int64) ([]Member, error)
	GetMember(ctx context.Context, companyID, userID int64) (Member, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the mutations that must share one transaction so the
// admin-count invariant is checked against a consistent snapshot.
type TxRepository interface {
	HasMembership(ctx context.Context, companyID, userID int64) (bool, error)
	CountAdminsExcluding(ctx context.Context, companyID, userID int64) (int, error)
	InsertRole(ctx context.Context, companyID, userID int64, role authz.Role) error
	DeleteRoles(ctx context.Context, companyID, userID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListMembers(ctx context.Context, companyID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.user_id, u.email, u.name, m.role, MIN(m.created_at) OVER (PARTITION BY m.user_id)
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.company_id = $1 AND m.is_active
		ORDER BY m.user_id, m.role`, companyID)
	if err != nil {
		return nil, fmt.Errorf("memberships: list: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var (
			userID int64
			email  string
			name   string
			raw    string
			member *Member
		)
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&userID, &email, &name, &raw, &createdAt); err != nil {
			return nil, fmt.Errorf("memberships: scan: %w", err)
		}
		role, err := authz.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		if n := len(members); n > 0 && members[n-1].UserID == userID {
			member = &members[n-1]
			member.Roles = append(member.Roles, role)
			continue
		}
		members = append(members, Member{
			UserID:    userID,
			CompanyID: companyID,
			Email:     email,
			Name:      name,
			Roles:     []authz.Role{role},
			CreatedAt: createdAt.Time,
		})
	}
	return members, rows.Err()
}

func (r *repository) GetMember(ctx context.Context, companyID, userID int64) (Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.email, u.name, m.role, m.created_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.company_id = $1 AND m.user_id = $2 AND m.is_active
		ORDER BY m.role`, companyID, userID)
	if err != nil {
		return Member{}, fmt.Errorf("memberships: get: %w", err)
	}
	defer rows.Close()

	member := Member{UserID: userID, CompanyID: companyID}
	for rows.Next() {
		var raw string
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&member.Email, &member.Name, &raw, &createdAt); err != nil {
			return Member{}, fmt.Errorf("memberships: scan: %w", err)
		}
		role, err := authz.ParseRole(raw)
		if err != nil {
			return Member{}, err
		}
		member.Roles = append(member.Roles, role)
		if member.CreatedAt.IsZero() || createdAt.Time.Before(member.CreatedAt) {
			member.CreatedAt = createdAt.Time
		}
	}
	if err := rows.Err(); err != nil {
		return Member{}, err
	}
	if len(member.Roles) == 0 {
		return Member{}, ErrNotMember
	}
	return member, nil
}

// WithTx runs fn within a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("memberships: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("memberships: commit tx: %w", err)
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) HasMembership(ctx context.Context, companyID, userID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE company_id = $1 AND user_id = $2 AND is_active)`,
		companyID, userID).Scan(&exists)
	return exists, err
}

func (t *txRepository) CountAdminsExcluding(ctx context.Context, companyID, userID int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM memberships WHERE company_id = $1 AND role = 'ADMIN' AND is_active AND user_id <> $2`,
		companyID, userID).Scan(&count)
	return count, err
}

func (t *txRepository) InsertRole(ctx context.Context, companyID, userID int64, role authz.Role) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO memberships (company_id, user_id, role, is_active, created_at) VALUES ($1, $2, $3, TRUE, NOW())`,
		companyID, userID, string(role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyMember
		}
		return fmt.Errorf("memberships: insert role: %w", err)
	}
	return nil
}

func (t *txRepository) DeleteRoles(ctx context.Context, companyID, userID int64) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM memberships WHERE company_id = $1 AND user_id = $2`,
		companyID, userID)
	return err
}

var _ Repository = (*repository)(nil)
