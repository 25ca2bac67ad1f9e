package memberships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi-app/akademi/internal/authz"
)

type memberKey struct {
	companyID int64
	userID    int64
}

type mockRepository struct {
	roles   map[memberKey][]authz.Role
	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{roles: make(map[memberKey][]authz.Role)}
}

func (m *mockRepository) seed(companyID, userID int64, roles ...authz.Role) {
	m.roles[memberKey{companyID, userID}] = roles
}

func (m *mockRepository) ListMembers(ctx context.Context, companyID int64) ([]Member, error) {
	var members []Member
	for key, roles := range m.roles {
		if key.companyID == companyID {
			members = append(members, Member{UserID: key.userID, CompanyID: companyID, Roles: roles})
		}
	}
	return members, nil
}

func (m *mockRepository) GetMember(ctx context.Context, companyID, userID int64) (Member, error) {
	roles, ok := m.roles[memberKey{companyID, userID}]
	if !ok {
		return Member{}, ErrNotMember
	}
	return Member{UserID: userID, CompanyID: companyID, Roles: roles}, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTx{repo: m})
}

type mockTx struct {
	repo *mockRepository
}

func (t *mockTx) HasMembership(ctx context.Context, companyID, userID int64) (bool, error) {
	_, ok := t.repo.roles[memberKey{companyID, userID}]
	return ok, nil
}

func (t *mockTx) CountAdminsExcluding(ctx context.Context, companyID, userID int64) (int, error) {
	count := 0
	for key, roles := range t.repo.roles {
		if key.companyID != companyID || key.userID == userID {
			continue
		}
		for _, role := range roles {
			if role == authz.RoleAdmin {
				count++
				break
			}
		}
	}
	return count, nil
}

func (t *mockTx) InsertRole(ctx context.Context, companyID, userID int64, role authz.Role) error {
	key := memberKey{companyID, userID}
	t.repo.roles[key] = append(t.repo.roles[key], role)
	return nil
}

func (t *mockTx) DeleteRoles(ctx context.Context, companyID, userID int64) error {
	delete(t.repo.roles, memberKey{companyID, userID})
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nil, nil)
}

func TestAddMember(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	err := svc.Add(context.Background(), 1, 10, 42, []authz.Role{authz.RoleStudent})
	require.NoError(t, err)

	member, err := svc.Get(context.Background(), 10, 42)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleStudent}, member.Roles)
}

func TestAddMemberTwiceConflicts(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleStudent)
	svc := newTestService(repo)

	err := svc.Add(context.Background(), 1, 10, 42, []authz.Role{authz.RoleTeacher})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAddMemberDeduplicatesRoles(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	err := svc.Add(context.Background(), 1, 10, 42, []authz.Role{authz.RoleTeacher, authz.RoleTeacher, authz.RoleStudent})
	require.NoError(t, err)

	member, err := svc.Get(context.Background(), 10, 42)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleTeacher, authz.RoleStudent}, member.Roles)
}

func TestAddMemberRejectsUnknownRole(t *testing.T) {
	svc := newTestService(newMockRepository())
	err := svc.Add(context.Background(), 1, 10, 42, []authz.Role{authz.Role("OWNER")})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAddMemberRejectsEmptyRoleSet(t *testing.T) {
	svc := newTestService(newMockRepository())
	err := svc.Add(context.Background(), 1, 10, 42, nil)
	assert.ErrorIs(t, err, ErrNoRoles)
}

func TestRemoveLastAdminRefused(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin)
	repo.seed(10, 43, authz.RoleTeacher)
	svc := newTestService(repo)

	err := svc.Remove(context.Background(), 1, 10, 42)
	assert.ErrorIs(t, err, ErrLastAdmin)

	// The membership must survive the refused removal.
	_, err = svc.Get(context.Background(), 10, 42)
	assert.NoError(t, err)
}

func TestRemoveAdminWithAnotherAdminSucceeds(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin)
	repo.seed(10, 43, authz.RoleAdmin)
	svc := newTestService(repo)

	err := svc.Remove(context.Background(), 1, 10, 42)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 10, 42)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestRemoveNonAdminSucceeds(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin)
	repo.seed(10, 43, authz.RoleStudent)
	svc := newTestService(repo)

	err := svc.Remove(context.Background(), 1, 10, 43)
	assert.NoError(t, err)
}

func TestRemoveUnknownMember(t *testing.T) {
	svc := newTestService(newMockRepository())
	err := svc.Remove(context.Background(), 1, 10, 99)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestDowngradeLastAdminRefused(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin, authz.RoleTeacher)
	svc := newTestService(repo)

	err := svc.UpdateRoles(context.Background(), 1, 10, 42, []authz.Role{authz.RoleTeacher})
	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestDowngradeAdminKeepingAdminRoleSucceeds(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin, authz.RoleTeacher)
	svc := newTestService(repo)

	err := svc.UpdateRoles(context.Background(), 1, 10, 42, []authz.Role{authz.RoleAdmin})
	require.NoError(t, err)

	member, err := svc.Get(context.Background(), 10, 42)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleAdmin}, member.Roles)
}

func TestDowngradeAdminWithAnotherAdminSucceeds(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin)
	repo.seed(10, 43, authz.RoleAdmin)
	svc := newTestService(repo)

	err := svc.UpdateRoles(context.Background(), 1, 10, 42, []authz.Role{authz.RoleStudent})
	require.NoError(t, err)

	member, err := svc.Get(context.Background(), 10, 42)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleStudent}, member.Roles)
}

func TestRemoveAdminInOneCompanyIgnoresOtherCompanies(t *testing.T) {
	repo := newMockRepository()
	repo.seed(10, 42, authz.RoleAdmin)
	repo.seed(20, 42, authz.RoleAdmin)
	repo.seed(20, 43, authz.RoleAdmin)
	svc := newTestService(repo)

	// Admins of company 20 do not count for company 10.
	err := svc.Remove(context.Background(), 1, 10, 42)
	assert.ErrorIs(t, err, ErrLastAdmin)
}
