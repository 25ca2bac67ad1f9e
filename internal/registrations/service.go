package registrations

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/akademi-app/akademi/internal/shared"
)

// Subscriber opens and closes billing subscriptions as registrations move
// through their lifecycle. The billing module implements it.
type Subscriber interface {
	OpenSubscription(ctx context.Context, companyID, registrationID int64) error
	CloseSubscription(ctx context.Context, companyID, registrationID int64) error
}

// Service handles the registration lifecycle. Transitions are
// DRAFT -> CONFIRMED and {DRAFT, CONFIRMED} -> CANCELLED; everything else
// is refused.
type Service struct {
	repo       Repository
	subscriber Subscriber
	audit      *shared.AuditLogger
	logger     *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, subscriber Subscriber, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, subscriber: subscriber, audit: audit, logger: logger}
}

// List returns all registrations of a company.
func (s *Service) List(ctx context.Context, companyID int64) ([]Registration, error) {
	return s.repo.List(ctx, companyID)
}

// ListByStudent returns one student's registrations.
func (s *Service) ListByStudent(ctx context.Context, companyID, studentID int64) ([]Registration, error) {
	return s.repo.ListByStudent(ctx, companyID, studentID)
}

// Get fetches a single registration.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Registration, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Create opens a draft registration for a student in a class.
func (s *Service) Create(ctx context.Context, actorID, companyID, studentID, classID int64) (Registration, error) {
	reg, err := s.repo.Create(ctx, Registration{
		CompanyID: companyID,
		StudentID: studentID,
		ClassID:   classID,
	})
	if err != nil {
		return Registration{}, err
	}
	s.recordAudit(ctx, actorID, "registration.create", reg)
	return reg, nil
}

// Confirm moves a draft registration to CONFIRMED and opens its billing
// subscription. The status flips first; if opening the subscription fails
// the nightly reconciliation job picks the registration up, so the student
// is never blocked on the billing provider.
func (s *Service) Confirm(ctx context.Context, actorID, companyID, id int64) (Registration, error) {
	if err := s.repo.UpdateStatus(ctx, companyID, id, StatusDraft, StatusConfirmed); err != nil {
		return Registration{}, err
	}
	if err := s.subscriber.OpenSubscription(ctx, companyID, id); err != nil {
		s.logger.Error("open subscription",
			slog.Int64("company_id", companyID),
			slog.Int64("registration_id", id),
			slog.Any("error", err))
	}
	reg, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return Registration{}, err
	}
	s.recordAudit(ctx, actorID, "registration.confirm", reg)
	return reg, nil
}

// Cancel moves a registration to CANCELLED from either live status and
// closes any open subscription.
func (s *Service) Cancel(ctx context.Context, actorID, companyID, id int64) (Registration, error) {
	err := s.repo.UpdateStatus(ctx, companyID, id, StatusDraft, StatusCancelled)
	if err == ErrInvalidTransition {
		err = s.repo.UpdateStatus(ctx, companyID, id, StatusConfirmed, StatusCancelled)
	}
	if err != nil {
		return Registration{}, err
	}
	if err := s.subscriber.CloseSubscription(ctx, companyID, id); err != nil {
		s.logger.Error("close subscription",
			slog.Int64("company_id", companyID),
			slog.Int64("registration_id", id),
			slog.Any("error", err))
	}
	reg, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return Registration{}, err
	}
	s.recordAudit(ctx, actorID, "registration.cancel", reg)
	return reg, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, reg Registration) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "registration",
		EntityID: strconv.FormatInt(reg.ID, 10),
		Meta: map[string]any{
			"company_id": reg.CompanyID,
			"student_id": reg.StudentID,
			"class_id":   reg.ClassID,
			"status":     string(reg.Status),
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Error("audit registration", slog.Any("error", err))
	}
}
