package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/akademi-app/akademi/internal/shared"
)

// Enqueuer hands reconciliation work to the background worker. The jobs
// package implements it.
type Enqueuer interface {
	EnqueueBillingReconcile(ctx context.Context, companyID, registrationID int64, eventType string) error
}

// IdempotencyGuard deduplicates provider events across deliveries.
// shared.IdempotencyStore implements it.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service owns subscriptions and webhook ingestion. It never calls the
// payment provider synchronously: inbound events are verified, stored and
// reconciled by the worker.
type Service struct {
	repo     Repository
	idem     IdempotencyGuard
	enqueuer Enqueuer
	logger   *slog.Logger
	secret   []byte

	// Tuition defaults until per-class pricing exists.
	amountCents int64
	currency    string
}

// NewService builds a Service.
func NewService(repo Repository, idem IdempotencyGuard, enqueuer Enqueuer, logger *slog.Logger, webhookSecret string) *Service {
	return &Service{
		repo:        repo,
		idem:        idem,
		enqueuer:    enqueuer,
		logger:      logger,
		secret:      []byte(webhookSecret),
		amountCents: 25000,
		currency:    "USD",
	}
}

// OpenSubscription starts billing for a confirmed registration. Calling it
// again for the same registration is a no-op, so the confirm path and the
// reconciliation job can both call it safely.
func (s *Service) OpenSubscription(ctx context.Context, companyID, registrationID int64) error {
	_, err := s.repo.CreateSubscription(ctx, Subscription{
		CompanyID:        companyID,
		RegistrationID:   registrationID,
		AmountCents:      s.amountCents,
		Currency:         s.currency,
		CurrentPeriodEnd: time.Now().UTC().AddDate(0, 1, 0),
	})
	return err
}

// CloseSubscription stops billing for a cancelled registration. A
// registration that never got a subscription is not an error.
func (s *Service) CloseSubscription(ctx context.Context, companyID, registrationID int64) error {
	err := s.repo.UpdateStatus(ctx, companyID, registrationID, SubscriptionCancelled, time.Now().UTC())
	if errors.Is(err, ErrNoSubscription) {
		return nil
	}
	return err
}

// ListSubscriptions returns a company's subscriptions.
func (s *Service) ListSubscriptions(ctx context.Context, companyID int64) ([]Subscription, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// VerifySignature checks the provider's HMAC-SHA256 signature over the raw
// request body. Comparison is constant time.
func (s *Service) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// IngestEvent stores a verified provider event exactly once and schedules
// its reconciliation. Duplicate deliveries return ErrDuplicateEvent.
func (s *Service) IngestEvent(ctx context.Context, ev Event) error {
	if err := s.idem.CheckAndInsert(ctx, ev.ProviderID, "billing"); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("idempotency check: %w", err)
	}
	stored, err := s.repo.StoreEvent(ctx, ev)
	if err != nil {
		if delErr := s.idem.Delete(ctx, ev.ProviderID); delErr != nil {
			s.logger.Error("rollback idempotency key", slog.String("key", ev.ProviderID), slog.Any("error", delErr))
		}
		if errors.Is(err, ErrDuplicateEvent) {
			return err
		}
		return fmt.Errorf("store event: %w", err)
	}
	companyID, err := s.repo.CompanyForRegistration(ctx, stored.RegistrationID)
	if err != nil {
		s.logger.Error("resolve event company",
			slog.String("provider_id", stored.ProviderID),
			slog.Int64("registration_id", stored.RegistrationID),
			slog.Any("error", err))
		return nil
	}
	if err := s.enqueuer.EnqueueBillingReconcile(ctx, companyID, stored.RegistrationID, stored.Type); err != nil {
		// The event is stored; the nightly sweep reconciles it later.
		s.logger.Error("enqueue reconcile",
			slog.String("provider_id", stored.ProviderID),
			slog.Any("error", err))
	}
	return nil
}

// Reconcile applies a provider event to the subscription state. Invoked by
// the worker.
func (s *Service) Reconcile(ctx context.Context, companyID, registrationID int64, eventType string) error {
	switch eventType {
	case EventPaymentSucceeded:
		return s.repo.UpdateStatus(ctx, companyID, registrationID, SubscriptionActive, time.Now().UTC().AddDate(0, 1, 0))
	case EventPaymentFailed:
		sub, err := s.repo.GetByRegistration(ctx, companyID, registrationID)
		if err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, companyID, registrationID, SubscriptionPastDue, sub.CurrentPeriodEnd)
	case EventSubscriptionEnd:
		return s.repo.UpdateStatus(ctx, companyID, registrationID, SubscriptionCancelled, time.Now().UTC())
	default:
		s.logger.Warn("unknown billing event type", slog.String("type", eventType))
		return nil
	}
}

// SweepOverdue marks active subscriptions past their period end as
// PAST_DUE and reports the count per company. Run nightly by the worker.
func (s *Service) SweepOverdue(ctx context.Context, asOf time.Time) (map[int64]int, error) {
	overdue, err := s.repo.ListOverdue(ctx, asOf)
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int)
	for _, sub := range overdue {
		if err := s.repo.UpdateStatus(ctx, sub.CompanyID, sub.RegistrationID, SubscriptionPastDue, sub.CurrentPeriodEnd); err != nil {
			return counts, err
		}
		counts[sub.CompanyID]++
	}
	return counts, nil
}

// FormatAmount renders a subscription amount for emails and lists, e.g.
// "$250.00".
func FormatAmount(amountCents int64, currencyCode string) string {
	p := message.NewPrinter(language.English)
	switch currencyCode {
	case "USD":
		return p.Sprintf("$%.2f", float64(amountCents)/100)
	case "EUR":
		return p.Sprintf("€%.2f", float64(amountCents)/100)
	default:
		return p.Sprintf("%s %.2f", currencyCode, float64(amountCents)/100)
	}
}
