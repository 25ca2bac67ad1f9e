package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akademi-app/akademi/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error) {
	args := m.Called(ctx, sub)
	out, _ := args.Get(0).(Subscription)
	return out, args.Error(1)
}

func (m *mockRepo) GetByRegistration(ctx context.Context, companyID, registrationID int64) (Subscription, error) {
	args := m.Called(ctx, companyID, registrationID)
	out, _ := args.Get(0).(Subscription)
	return out, args.Error(1)
}

func (m *mockRepo) ListByCompany(ctx context.Context, companyID int64) ([]Subscription, error) {
	args := m.Called(ctx, companyID)
	out, _ := args.Get(0).([]Subscription)
	return out, args.Error(1)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, companyID, registrationID int64, status SubscriptionStatus, periodEnd time.Time) error {
	return m.Called(ctx, companyID, registrationID, status, periodEnd).Error(0)
}

func (m *mockRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]Subscription, error) {
	args := m.Called(ctx, asOf)
	out, _ := args.Get(0).([]Subscription)
	return out, args.Error(1)
}

func (m *mockRepo) StoreEvent(ctx context.Context, ev Event) (Event, error) {
	args := m.Called(ctx, ev)
	out, _ := args.Get(0).(Event)
	return out, args.Error(1)
}

func (m *mockRepo) CompanyForRegistration(ctx context.Context, registrationID int64) (int64, error) {
	args := m.Called(ctx, registrationID)
	return args.Get(0).(int64), args.Error(1)
}

type mockIdem struct {
	mock.Mock
}

func (m *mockIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	return m.Called(ctx, key, module).Error(0)
}

func (m *mockIdem) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueBillingReconcile(ctx context.Context, companyID, registrationID int64, eventType string) error {
	return m.Called(ctx, companyID, registrationID, eventType).Error(0)
}

func newTestService(repo *mockRepo, idem *mockIdem, enq *mockEnqueuer) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, idem, enq, logger, "whsec_test")
}

func TestVerifySignature(t *testing.T) {
	svc := newTestService(new(mockRepo), new(mockIdem), new(mockEnqueuer))
	body := []byte(`{"event_id":"evt_1"}`)

	require.ErrorIs(t, svc.VerifySignature(body, "deadbeef"), ErrBadSignature)
	require.ErrorIs(t, svc.VerifySignature(body, ""), ErrBadSignature)

	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))
	require.NoError(t, svc.VerifySignature(body, sig))

	// A signature over a different body never verifies.
	require.ErrorIs(t, svc.VerifySignature([]byte(`{"event_id":"evt_9"}`), sig), ErrBadSignature)
}

func TestIngestEventDeduplicates(t *testing.T) {
	repo := new(mockRepo)
	idem := new(mockIdem)
	enq := new(mockEnqueuer)
	svc := newTestService(repo, idem, enq)
	ctx := context.Background()

	idem.On("CheckAndInsert", ctx, "evt_1", "billing").Return(shared.ErrIdempotencyConflict)

	err := svc.IngestEvent(ctx, Event{ProviderID: "evt_1", Type: EventPaymentSucceeded, RegistrationID: 10})
	require.ErrorIs(t, err, ErrDuplicateEvent)
	repo.AssertNotCalled(t, "StoreEvent", mock.Anything, mock.Anything)
}

func TestIngestEventStoresAndEnqueues(t *testing.T) {
	repo := new(mockRepo)
	idem := new(mockIdem)
	enq := new(mockEnqueuer)
	svc := newTestService(repo, idem, enq)
	ctx := context.Background()
	ev := Event{ProviderID: "evt_2", Type: EventPaymentSucceeded, RegistrationID: 10}

	idem.On("CheckAndInsert", ctx, "evt_2", "billing").Return(nil)
	repo.On("StoreEvent", ctx, ev).Return(ev, nil)
	repo.On("CompanyForRegistration", ctx, int64(10)).Return(int64(1), nil)
	enq.On("EnqueueBillingReconcile", ctx, int64(1), int64(10), EventPaymentSucceeded).Return(nil)

	require.NoError(t, svc.IngestEvent(ctx, ev))
	enq.AssertExpectations(t)
}

func TestIngestEventRollsBackKeyOnStoreFailure(t *testing.T) {
	repo := new(mockRepo)
	idem := new(mockIdem)
	enq := new(mockEnqueuer)
	svc := newTestService(repo, idem, enq)
	ctx := context.Background()
	ev := Event{ProviderID: "evt_3", Type: EventPaymentFailed, RegistrationID: 10}

	idem.On("CheckAndInsert", ctx, "evt_3", "billing").Return(nil)
	repo.On("StoreEvent", ctx, ev).Return(Event{}, context.DeadlineExceeded)
	idem.On("Delete", ctx, "evt_3").Return(nil)

	err := svc.IngestEvent(ctx, ev)
	require.Error(t, err)
	idem.AssertCalled(t, "Delete", ctx, "evt_3")
}

func TestReconcileTransitions(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockIdem), new(mockEnqueuer))
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), SubscriptionActive, mock.Anything).Return(nil).Once()
	require.NoError(t, svc.Reconcile(ctx, 1, 10, EventPaymentSucceeded))

	periodEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	repo.On("GetByRegistration", ctx, int64(1), int64(10)).Return(Subscription{CurrentPeriodEnd: periodEnd}, nil)
	repo.On("UpdateStatus", ctx, int64(1), int64(10), SubscriptionPastDue, periodEnd).Return(nil).Once()
	require.NoError(t, svc.Reconcile(ctx, 1, 10, EventPaymentFailed))

	repo.On("UpdateStatus", ctx, int64(1), int64(10), SubscriptionCancelled, mock.Anything).Return(nil).Once()
	require.NoError(t, svc.Reconcile(ctx, 1, 10, EventSubscriptionEnd))

	// Unknown types are logged and dropped, never an error (providers add
	// event types without notice).
	require.NoError(t, svc.Reconcile(ctx, 1, 10, "payout.created"))
}

func TestCloseSubscriptionWithoutOneIsNoop(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockIdem), new(mockEnqueuer))
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), SubscriptionCancelled, mock.Anything).Return(ErrNoSubscription)

	require.NoError(t, svc.CloseSubscription(ctx, 1, 10))
}

func TestSweepOverdueCountsPerCompany(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, new(mockIdem), new(mockEnqueuer))
	ctx := context.Background()
	asOf := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)

	overdue := []Subscription{
		{CompanyID: 1, RegistrationID: 10, CurrentPeriodEnd: asOf.AddDate(0, 0, -3)},
		{CompanyID: 1, RegistrationID: 11, CurrentPeriodEnd: asOf.AddDate(0, 0, -1)},
		{CompanyID: 2, RegistrationID: 20, CurrentPeriodEnd: asOf.AddDate(0, 0, -9)},
	}
	repo.On("ListOverdue", ctx, asOf).Return(overdue, nil)
	for _, sub := range overdue {
		repo.On("UpdateStatus", ctx, sub.CompanyID, sub.RegistrationID, SubscriptionPastDue, sub.CurrentPeriodEnd).Return(nil)
	}

	counts, err := svc.SweepOverdue(ctx, asOf)
	require.NoError(t, err)
	require.Equal(t, map[int64]int{1: 2, 2: 1}, counts)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "$250.00", FormatAmount(25000, "USD"))
	require.Equal(t, "€99.50", FormatAmount(9950, "EUR"))
	require.Equal(t, "BRL 1,250.00", FormatAmount(125000, "BRL"))
}
