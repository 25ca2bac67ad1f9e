package memberships

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/shared"
)

// Service enforces membership business rules, most importantly that a
// company never loses its last ADMIN.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns all active members of the company with their role sets.
func (s *Service) List(ctx context.Context, companyID int64) ([]Member, error) {
	return s.repo.ListMembers(ctx, companyID)
}

// Get returns one member of the company.
func (s *Service) Get(ctx context.Context, companyID, userID int64) (Member, error) {
	return s.repo.GetMember(ctx, companyID, userID)
}

// Add grants the user a membership in the company with the given roles.
func (s *Service) Add(ctx context.Context, actorID, companyID, userID int64, roles []authz.Role) error {
	roles, err := normalizeRoles(roles)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.HasMembership(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyMember
		}
		for _, role := range roles {
			if err := tx.InsertRole(ctx, companyID, userID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "member.add", companyID, userID)
	return nil
}

// UpdateRoles replaces the member's role set. Downgrading the last ADMIN
// of the company is refused.
func (s *Service) UpdateRoles(ctx context.Context, actorID, companyID, userID int64, roles []authz.Role) error {
	roles, err := normalizeRoles(roles)
	if err != nil {
		return err
	}
	keepsAdmin := false
	for _, role := range roles {
		if role == authz.RoleAdmin {
			keepsAdmin = true
		}
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.HasMembership(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotMember
		}
		if !keepsAdmin {
			others, err := tx.CountAdminsExcluding(ctx, companyID, userID)
			if err != nil {
				return err
			}
			if others == 0 {
				return ErrLastAdmin
			}
		}
		if err := tx.DeleteRoles(ctx, companyID, userID); err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.InsertRole(ctx, companyID, userID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "member.update_roles", companyID, userID)
	return nil
}

// Remove deletes the user's membership in the company. Removing the last
// ADMIN is refused: the count check and the delete share one transaction
// so two concurrent removals cannot both pass the check.
func (s *Service) Remove(ctx context.Context, actorID, companyID, userID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.HasMembership(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotMember
		}
		others, err := tx.CountAdminsExcluding(ctx, companyID, userID)
		if err != nil {
			return err
		}
		if others == 0 {
			return ErrLastAdmin
		}
		return tx.DeleteRoles(ctx, companyID, userID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "member.remove", companyID, userID)
	return nil
}

func normalizeRoles(roles []authz.Role) ([]authz.Role, error) {
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	seen := make(map[authz.Role]struct{}, len(roles))
	out := make([]authz.Role, 0, len(roles))
	for _, role := range roles {
		parsed, err := authz.ParseRole(string(role))
		if err != nil {
			return nil, ErrInvalidRole
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, companyID, userID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "membership",
		EntityID: formatEntityID(companyID, userID),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("membership audit", slog.Any("error", err))
	}
}

func formatEntityID(companyID, userID int64) string {
	return strconv.FormatInt(companyID, 10) + ":" + strconv.FormatInt(userID, 10)
}
