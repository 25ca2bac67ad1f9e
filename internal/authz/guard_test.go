package authz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/shared"
	_ "github.com/akademi-app/akademi/testing"
)

type stubResolver struct {
	memberships map[[2]int64][]authz.Role
	err         error
	calls       int
}

func (s *stubResolver) Resolve(ctx context.Context, companyID, actorID int64) (authz.Membership, error) {
	s.calls++
	if s.err != nil {
		return authz.Membership{}, s.err
	}
	roles, ok := s.memberships[[2]int64{companyID, actorID}]
	if !ok {
		return authz.Membership{}, authz.ErrMembershipNotFound
	}
	return authz.Membership{ActorID: actorID, CompanyID: companyID, Roles: roles}, nil
}

func sessionContext(t *testing.T, userID string) context.Context {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return shared.ContextWithSession(context.Background(), sess)
}

func TestRequireActor(t *testing.T) {
	guard := authz.NewGuard(&stubResolver{}, nil)

	t.Run("no session", func(t *testing.T) {
		_, err := guard.RequireActor(context.Background())
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("anonymous session", func(t *testing.T) {
		_, err := guard.RequireActor(sessionContext(t, ""))
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("malformed user id", func(t *testing.T) {
		_, err := guard.RequireActor(sessionContext(t, "not-a-number"))
		assert.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("authenticated", func(t *testing.T) {
		ctx := sessionContext(t, "42")
		id, err := guard.RequireActor(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		// Idempotent within the request: same result, no extra work.
		again, err := guard.RequireActor(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})
}

func TestRequireMembershipMissingIsForbidden(t *testing.T) {
	resolver := &stubResolver{memberships: map[[2]int64][]authz.Role{
		{2, 42}: {authz.RoleAdmin},
	}}
	guard := authz.NewGuard(resolver, nil)

	// Valid actor, wrong company: Forbidden, never Unauthenticated, and
	// memberships elsewhere do not help.
	_, err := guard.RequireMembership(context.Background(), 1, 42)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.NotErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestRequireMembershipResolverFailureFailsClosed(t *testing.T) {
	guard := authz.NewGuard(&stubResolver{err: errors.New("connection reset")}, nil)
	_, err := guard.RequireMembership(context.Background(), 1, 42)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestRequireMembershipCancelledLookupFailsClosed(t *testing.T) {
	guard := authz.NewGuard(&stubResolver{err: context.Canceled}, nil)
	_, err := guard.RequireMembership(context.Background(), 1, 42)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestRequireMembershipNeverLeaksNotFound(t *testing.T) {
	guard := authz.NewGuard(&stubResolver{}, nil)
	_, err := guard.RequireMembership(context.Background(), 1, 42)
	assert.NotErrorIs(t, err, authz.ErrMembershipNotFound)
}

func TestDecisionsAreTenantScoped(t *testing.T) {
	resolver := &stubResolver{memberships: map[[2]int64][]authz.Role{
		{1, 42}: {authz.RoleAdmin},
		{2, 42}: {authz.RoleStudent},
	}}
	guard := authz.NewGuard(resolver, nil)

	inA, err := guard.RequireMembership(context.Background(), 1, 42)
	require.NoError(t, err)
	inB, err := guard.RequireMembership(context.Background(), 2, 42)
	require.NoError(t, err)

	evA := authz.BuildEvaluator(inA.ActorID, inA.Roles)
	evB := authz.BuildEvaluator(inB.ActorID, inB.Roles)

	assert.True(t, evA.Can(authz.ActionCreate, authz.ResourceCourse))
	assert.True(t, evB.Cannot(authz.ActionCreate, authz.ResourceCourse))
}

func protectedRouter(guard authz.Guard) http.Handler {
	r := chi.NewRouter()
	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Use(guard.Protect())
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			ev, ok := authz.EvaluatorFromContext(r.Context())
			if !ok || ev.Cannot(authz.ActionGet, authz.ResourceCourse) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestProtectMiddleware(t *testing.T) {
	resolver := &stubResolver{memberships: map[[2]int64][]authz.Role{
		{1, 42}: {authz.RoleStudent},
	}}
	router := protectedRouter(authz.NewGuard(resolver, nil))

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/companies/1/ping", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("no membership", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/companies/9/ping", nil)
		req = req.WithContext(sessionContext(t, "42"))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusForbidden, res.Code)
	})

	t.Run("member", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/companies/1/ping", nil)
		req = req.WithContext(sessionContext(t, "42"))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("malformed company id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/companies/abc/ping", nil)
		req = req.WithContext(sessionContext(t, "42"))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}
