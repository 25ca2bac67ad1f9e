package companies

import (
	"context"
	"errors"
	"strings"
)

// ErrNameRequired indicates a blank company name.
var ErrNameRequired = errors.New("companies: name required")

// Service handles company business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new company with ownerID as its first admin.
func (s *Service) Create(ctx context.Context, name, address, phone string, ownerID int64) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, ErrNameRequired
	}
	return s.repo.CreateWithOwner(ctx, Company{
		Name:    name,
		Address: strings.TrimSpace(address),
		Phone:   strings.TrimSpace(phone),
	}, ownerID)
}

// Get fetches a company by id.
func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

// Update changes company master data.
func (s *Service) Update(ctx context.Context, company Company) (Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return Company{}, ErrNameRequired
	}
	return s.repo.Update(ctx, company)
}

// Delete removes the company and, via cascading constraints, everything it
// owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
