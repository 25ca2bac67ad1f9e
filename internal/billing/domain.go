package billing

import (
	"errors"
	"time"
)

// SubscriptionStatus is the billing state of a confirmed registration.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription is the recurring charge attached to a registration.
type Subscription struct {
	ID               int64              `json:"id"`
	CompanyID        int64              `json:"company_id"`
	RegistrationID   int64              `json:"registration_id"`
	Status           SubscriptionStatus `json:"status"`
	AmountCents      int64              `json:"amount_cents"`
	Currency         string             `json:"currency"`
	CurrentPeriodEnd time.Time          `json:"current_period_end"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Event is a payment-provider callback stored verbatim before processing.
type Event struct {
	ID             int64     `json:"id"`
	ProviderID     string    `json:"provider_id"`
	Type           string    `json:"type"`
	RegistrationID int64     `json:"registration_id"`
	Payload        []byte    `json:"-"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Provider event types the reconciler understands.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventSubscriptionEnd  = "subscription.ended"
)

var (
	// ErrBadSignature is returned when a webhook signature does not verify.
	ErrBadSignature = errors.New("billing: webhook signature mismatch")
	// ErrDuplicateEvent is returned when a provider event was already
	// ingested.
	ErrDuplicateEvent = errors.New("billing: event already processed")
	// ErrNoSubscription is returned when a registration has no
	// subscription.
	ErrNoSubscription = errors.New("billing: no subscription for registration")
)
