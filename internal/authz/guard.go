package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-app/akademi/internal/platform/httpx"
	"github.com/akademi-app/akademi/internal/shared"
)

// Guard composes the per-request authorization steps: actor extraction,
// membership resolution, evaluator construction. Each protected request
// walks Unauthenticated -> Authenticated -> MembershipResolved and ends
// Authorized or Denied; a denial is fatal and happens before any handler
// side effect.
type Guard struct {
	resolver Resolver
	logger   *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(resolver Resolver, logger *slog.Logger) Guard {
	return Guard{resolver: resolver, logger: logger}
}

// RequireActor extracts the authenticated user id from the request session.
// The session was verified and cached in the context by the session
// middleware, so repeated calls within one request are free.
func (g Guard) RequireActor(ctx context.Context) (int64, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return 0, ErrUnauthenticated
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if g.logger != nil {
			g.logger.Error("authz parse actor id", slog.String("value", raw))
		}
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// RequireMembership resolves the actor's membership in the company. Any
// failure — no rows, resolver error, cancelled lookup — surfaces as
// ErrForbidden so callers cannot tell a missing membership apart from an
// insufficient one, and never as an allowing default.
func (g Guard) RequireMembership(ctx context.Context, companyID, actorID int64) (Membership, error) {
	membership, err := g.resolver.Resolve(ctx, companyID, actorID)
	if err != nil {
		if !errors.Is(err, ErrMembershipNotFound) && g.logger != nil {
			g.logger.Error("authz resolve membership",
				slog.Int64("company_id", companyID),
				slog.Int64("user_id", actorID),
				slog.Any("error", err))
		}
		return Membership{}, ErrForbidden
	}
	return membership, nil
}

// Protect guards a company-scoped route subtree. It resolves the actor and
// their membership in the company named by the {companyID} URL parameter,
// builds the evaluator and stores both in the request context. Handlers
// downstream only ever see requests that reached MembershipResolved.
func (g Guard) Protect() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
			if err != nil || companyID <= 0 {
				httpx.Problem(w, http.StatusNotFound, "Not Found", "")
				return
			}
			actorID, err := g.RequireActor(r.Context())
			if err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			membership, err := g.RequireMembership(r.Context(), companyID, actorID)
			if err != nil {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			ctx := ContextWithMembership(r.Context(), membership)
			ctx = ContextWithEvaluator(ctx, BuildEvaluator(actorID, membership.Roles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDecision extracts the evaluator and membership placed by Protect,
// writing the fixed Forbidden response when either is missing. Handlers on
// unguarded routes therefore fail closed instead of proceeding.
func RequireDecision(w http.ResponseWriter, r *http.Request) (Evaluator, Membership, bool) {
	ev, ok := EvaluatorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Evaluator{}, Membership{}, false
	}
	membership, ok := MembershipFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrForbidden)
		return Evaluator{}, Membership{}, false
	}
	return ev, membership, true
}

type evaluatorContextKey struct{}
type membershipContextKey struct{}

// ContextWithEvaluator stores the request evaluator in context.
func ContextWithEvaluator(ctx context.Context, ev Evaluator) context.Context {
	return context.WithValue(ctx, evaluatorContextKey{}, ev)
}

// EvaluatorFromContext extracts the evaluator placed by Protect. The bool
// is false on unguarded routes; callers must treat that as deny.
func EvaluatorFromContext(ctx context.Context) (Evaluator, bool) {
	ev, ok := ctx.Value(evaluatorContextKey{}).(Evaluator)
	return ev, ok
}

// ContextWithMembership stores the resolved membership in context.
func ContextWithMembership(ctx context.Context, m Membership) context.Context {
	return context.WithValue(ctx, membershipContextKey{}, m)
}

// MembershipFromContext extracts the membership placed by Protect.
func MembershipFromContext(ctx context.Context) (Membership, bool) {
	m, ok := ctx.Value(membershipContextKey{}).(Membership)
	return m, ok
}
