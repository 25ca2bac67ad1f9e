package registrations

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/akademi-app/akademi/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) List(ctx context.Context, companyID int64) ([]Registration, error) {
	args := m.Called(ctx, companyID)
	regs, _ := args.Get(0).([]Registration)
	return regs, args.Error(1)
}

func (m *mockRepo) ListByStudent(ctx context.Context, companyID, studentID int64) ([]Registration, error) {
	args := m.Called(ctx, companyID, studentID)
	regs, _ := args.Get(0).([]Registration)
	return regs, args.Error(1)
}

func (m *mockRepo) Get(ctx context.Context, companyID, id int64) (Registration, error) {
	args := m.Called(ctx, companyID, id)
	reg, _ := args.Get(0).(Registration)
	return reg, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, reg Registration) (Registration, error) {
	args := m.Called(ctx, reg)
	out, _ := args.Get(0).(Registration)
	return out, args.Error(1)
}

func (m *mockRepo) UpdateStatus(ctx context.Context, companyID, id int64, from, to Status) error {
	return m.Called(ctx, companyID, id, from, to).Error(0)
}

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) OpenSubscription(ctx context.Context, companyID, registrationID int64) error {
	return m.Called(ctx, companyID, registrationID).Error(0)
}

func (m *mockSubscriber) CloseSubscription(ctx context.Context, companyID, registrationID int64) error {
	return m.Called(ctx, companyID, registrationID).Error(0)
}

func newTestService(repo *mockRepo, sub *mockSubscriber) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, sub, nil, logger)
}

func TestConfirmOpensSubscription(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusConfirmed).Return(nil)
	sub.On("OpenSubscription", ctx, int64(1), int64(10)).Return(nil)
	repo.On("Get", ctx, int64(1), int64(10)).Return(Registration{ID: 10, CompanyID: 1, Status: StatusConfirmed}, nil)

	reg, err := svc.Confirm(ctx, 99, 1, 10)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, reg.Status)
	sub.AssertExpectations(t)
}

func TestConfirmRefusedFromCancelled(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusConfirmed).Return(ErrInvalidTransition)

	_, err := svc.Confirm(ctx, 99, 1, 10)
	require.ErrorIs(t, err, ErrInvalidTransition)
	sub.AssertNotCalled(t, "OpenSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmSurvivesSubscriberOutage(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusConfirmed).Return(nil)
	sub.On("OpenSubscription", ctx, int64(1), int64(10)).Return(context.DeadlineExceeded)
	repo.On("Get", ctx, int64(1), int64(10)).Return(Registration{ID: 10, Status: StatusConfirmed}, nil)

	reg, err := svc.Confirm(ctx, 99, 1, 10)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, reg.Status)
}

func TestCancelFromDraft(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusCancelled).Return(nil)
	sub.On("CloseSubscription", ctx, int64(1), int64(10)).Return(nil)
	repo.On("Get", ctx, int64(1), int64(10)).Return(Registration{ID: 10, Status: StatusCancelled}, nil)

	reg, err := svc.Cancel(ctx, 99, 1, 10)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, reg.Status)
}

func TestCancelFromConfirmedFallsThrough(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusCancelled).Return(ErrInvalidTransition)
	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusConfirmed, StatusCancelled).Return(nil)
	sub.On("CloseSubscription", ctx, int64(1), int64(10)).Return(nil)
	repo.On("Get", ctx, int64(1), int64(10)).Return(Registration{ID: 10, Status: StatusCancelled}, nil)

	reg, err := svc.Cancel(ctx, 99, 1, 10)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, reg.Status)
}

func TestCancelTwiceRefused(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusDraft, StatusCancelled).Return(ErrInvalidTransition)
	repo.On("UpdateStatus", ctx, int64(1), int64(10), StatusConfirmed, StatusCancelled).Return(ErrInvalidTransition)

	_, err := svc.Cancel(ctx, 99, 1, 10)
	require.ErrorIs(t, err, ErrInvalidTransition)
	sub.AssertNotCalled(t, "CloseSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelUnknownRegistration(t *testing.T) {
	repo := new(mockRepo)
	sub := new(mockSubscriber)
	svc := newTestService(repo, sub)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, int64(1), int64(77), StatusDraft, StatusCancelled).Return(shared.ErrNotFound)

	_, err := svc.Cancel(ctx, 99, 1, 77)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
