package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-app/akademi/internal/shared"
)

// Service handles profile business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListMembers returns one page of a company's member profiles.
func (s *Service) ListMembers(ctx context.Context, companyID int64, page, perPage int) ([]User, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	users, total, err := s.repo.ListByCompany(ctx, companyID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(page, perPage, total), nil
}

// GetMember fetches a profile, restricted to the company's member set so a
// tenant cannot enumerate accounts from other tenants.
func (s *Service) GetMember(ctx context.Context, companyID, userID int64) (User, error) {
	ok, err := s.repo.IsMember(ctx, companyID, userID)
	if err != nil {
		return User{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return User{}, errNotMember
	}
	return s.repo.Get(ctx, userID)
}

// UpdateProfile changes name and email on an account. The target must be
// a member of the company the request is scoped to, same as GetMember: a
// capability granted in one tenant must never reach accounts in another.
func (s *Service) UpdateProfile(ctx context.Context, companyID, userID int64, name, email string) (User, error) {
	ok, err := s.repo.IsMember(ctx, companyID, userID)
	if err != nil {
		return User{}, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return User{}, errNotMember
	}
	if err := s.repo.UpdateProfile(ctx, userID, name, email); err != nil {
		return User{}, err
	}
	return s.repo.Get(ctx, userID)
}

// ChangePassword verifies the current password and stores a fresh hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.passwordHash), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, userID, string(hash))
}
