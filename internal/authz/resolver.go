package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Resolver looks up the membership of an actor within a company. It is a
// pure lookup: policy lives in the capability table and the guard.
type Resolver interface {
	Resolve(ctx context.Context, companyID, actorID int64) (Membership, error)
}

// PGResolver resolves memberships from the memberships table. A user may
// have one row per role in a company; the rows are collapsed into a single
// Membership carrying the role set.
type PGResolver struct {
	pool *pgxpool.Pool
}

// NewPGResolver constructs a resolver backed by the provided pool.
func NewPGResolver(pool *pgxpool.Pool) *PGResolver {
	return &PGResolver{pool: pool}
}

// Resolve returns the active membership for (companyID, actorID) or
// ErrMembershipNotFound. A cancelled context fails closed: no decision is
// ever derived from a lookup that did not complete.
func (r *PGResolver) Resolve(ctx context.Context, companyID, actorID int64) (Membership, error) {
	if err := ctx.Err(); err != nil {
		return Membership{}, fmt.Errorf("authz: resolve aborted: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT role FROM memberships WHERE company_id = $1 AND user_id = $2 AND is_active ORDER BY role`,
		companyID, actorID)
	if err != nil {
		return Membership{}, fmt.Errorf("authz: query memberships: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return Membership{}, fmt.Errorf("authz: scan membership: %w", err)
		}
		role, err := ParseRole(raw)
		if err != nil {
			return Membership{}, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return Membership{}, fmt.Errorf("authz: read memberships: %w", err)
	}
	if len(roles) == 0 {
		return Membership{}, ErrMembershipNotFound
	}

	return Membership{ActorID: actorID, CompanyID: companyID, Roles: roles}, nil
}

var _ Resolver = (*PGResolver)(nil)
