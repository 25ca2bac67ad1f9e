package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-app/akademi/internal/shared"
)

// Repository defines persistence operations for subscriptions and events.
type Repository interface {
	CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error)
	GetByRegistration(ctx context.Context, companyID, registrationID int64) (Subscription, error)
	ListByCompany(ctx context.Context, companyID int64) ([]Subscription, error)
	UpdateStatus(ctx context.Context, companyID, registrationID int64, status SubscriptionStatus, periodEnd time.Time) error
	ListOverdue(ctx context.Context, asOf time.Time) ([]Subscription, error)
	StoreEvent(ctx context.Context, ev Event) (Event, error)
	CompanyForRegistration(ctx context.Context, registrationID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const subColumns = `id, company_id, registration_id, status, amount_cents, currency, current_period_end, created_at, updated_at`

// CreateSubscription inserts an active subscription for a registration.
// Re-opening for the same registration is a no-op on conflict: confirm is
// retried by the reconciliation job and must stay idempotent.
func (r *PGRepository) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (company_id, registration_id, status, amount_cents, currency, current_period_end, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (registration_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		 RETURNING `+subColumns,
		sub.CompanyID, sub.RegistrationID, SubscriptionActive, sub.AmountCents, sub.Currency, sub.CurrentPeriodEnd.UTC(), now)
	return scanSubscription(row)
}

// GetByRegistration fetches the subscription of one registration.
func (r *PGRepository) GetByRegistration(ctx context.Context, companyID, registrationID int64) (Subscription, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE company_id = $1 AND registration_id = $2`,
		companyID, registrationID)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNoSubscription
		}
		return Subscription{}, err
	}
	return sub, nil
}

// ListByCompany returns a company's subscriptions, newest first.
func (r *PGRepository) ListByCompany(ctx context.Context, companyID int64) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE company_id = $1 ORDER BY created_at DESC, id DESC`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateStatus moves a subscription to a new status and period end.
func (r *PGRepository) UpdateStatus(ctx context.Context, companyID, registrationID int64, status SubscriptionStatus, periodEnd time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $1, current_period_end = $2, updated_at = $3
		 WHERE company_id = $4 AND registration_id = $5`,
		status, periodEnd.UTC(), time.Now().UTC(), companyID, registrationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSubscription
	}
	return nil
}

// ListOverdue returns active subscriptions whose period ended before asOf.
func (r *PGRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE status = $1 AND current_period_end < $2 ORDER BY company_id, id`,
		SubscriptionActive, asOf.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// StoreEvent persists a provider event. The unique provider id doubles as
// the idempotency guard at the storage layer.
func (r *PGRepository) StoreEvent(ctx context.Context, ev Event) (Event, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO billing_events (provider_id, type, registration_id, payload, received_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		ev.ProviderID, ev.Type, ev.RegistrationID, ev.Payload, now)
	if err := row.Scan(&ev.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Event{}, ErrDuplicateEvent
		}
		return Event{}, err
	}
	ev.ReceivedAt = now
	return ev, nil
}

// CompanyForRegistration resolves a registration's tenant. The provider
// only echoes registration ids back on webhooks.
func (r *PGRepository) CompanyForRegistration(ctx context.Context, registrationID int64) (int64, error) {
	row := r.pool.QueryRow(ctx, `SELECT company_id FROM registrations WHERE id = $1`, registrationID)
	var companyID int64
	if err := row.Scan(&companyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return companyID, nil
}

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.CompanyID, &s.RegistrationID, &s.Status, &s.AmountCents, &s.Currency, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, shared.ErrNotFound
	}
	return s, err
}

var _ Repository = (*PGRepository)(nil)
