package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-app/akademi/internal/shared"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]User, int, error) {
	args := m.Called(ctx, companyID, limit, offset)
	users, _ := args.Get(0).([]User)
	return users, args.Int(1), args.Error(2)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(User)
	return user, args.Error(1)
}

func (m *mockRepo) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	return m.Called(ctx, id, name, email).Error(0)
}

func (m *mockRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *mockRepo) IsMember(ctx context.Context, companyID, userID int64) (bool, error) {
	args := m.Called(ctx, companyID, userID)
	return args.Bool(0), args.Error(1)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestListMembersPaginates(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("ListByCompany", ctx, int64(1), 2, 2).
		Return([]User{{ID: 3}, {ID: 4}}, 5, nil)

	users, pagination, err := svc.ListMembers(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, 5, pagination.Total)
	require.Equal(t, 3, pagination.TotalPages)
}

func TestGetMemberScopedToCompany(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("IsMember", ctx, int64(1), int64(42)).Return(false, nil)

	_, err := svc.GetMember(ctx, 1, 42)
	require.ErrorIs(t, err, errNotMember)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestGetMemberReturnsProfile(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("IsMember", ctx, int64(1), int64(42)).Return(true, nil)
	repo.On("Get", ctx, int64(42)).Return(User{ID: 42, Email: "t@school.test"}, nil)

	user, err := svc.GetMember(ctx, 1, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), user.ID)
}

func TestUpdateProfileScopedToCompany(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("IsMember", ctx, int64(1), int64(999)).Return(false, nil)

	_, err := svc.UpdateProfile(ctx, 1, 999, "New Name", "new@school.test")
	require.ErrorIs(t, err, errNotMember)
	repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfileWritesMemberAccount(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("IsMember", ctx, int64(1), int64(42)).Return(true, nil)
	repo.On("UpdateProfile", ctx, int64(42), "New Name", "new@school.test").Return(nil)
	repo.On("Get", ctx, int64(42)).Return(User{ID: 42, Name: "New Name", Email: "new@school.test"}, nil)

	user, err := svc.UpdateProfile(ctx, 1, 42, "New Name", "new@school.test")
	require.NoError(t, err)
	require.Equal(t, "New Name", user.Name)
	repo.AssertExpectations(t)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, int64(7)).Return(User{ID: 7, passwordHash: hashFor(t, "correct-horse")}, nil)

	err := svc.ChangePassword(ctx, 7, "wrong-guess", "new-password-1")
	require.ErrorIs(t, err, ErrWrongPassword)
	repo.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePasswordStoresNewHash(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, int64(7)).Return(User{ID: 7, passwordHash: hashFor(t, "correct-horse")}, nil)
	repo.On("UpdatePasswordHash", ctx, int64(7), mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password-1")) == nil
	})).Return(nil)

	require.NoError(t, svc.ChangePassword(ctx, 7, "correct-horse", "new-password-1"))
	repo.AssertExpectations(t)
}

func TestChangePasswordUnknownUser(t *testing.T) {
	repo := new(mockRepo)
	svc := NewService(repo)
	ctx := context.Background()

	repo.On("Get", ctx, int64(99)).Return(User{}, shared.ErrNotFound)

	err := svc.ChangePassword(ctx, 99, "whatever", "new-password-1")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
