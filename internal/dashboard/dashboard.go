package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
)

// Summary is the per-company headline view the dashboards poll for.
type Summary struct {
	CompanyID            int64     `json:"company_id"`
	Students             int64     `json:"students"`
	Teachers             int64     `json:"teachers"`
	Classes              int64     `json:"classes"`
	PendingRegistrations int64     `json:"pending_registrations"`
	OverdueSubscriptions int64     `json:"overdue_subscriptions"`
	GeneratedAt          time.Time `json:"generated_at"`
}

const cacheTTL = 30 * time.Second

// Handler serves the company dashboard summary. Summaries are cached in
// redis and rebuilds are deduplicated with singleflight, so dashboard
// polling never stacks identical aggregate queries on postgres.
type Handler struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
	cache  *redis.Client
	group  singleflight.Group
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, cache *redis.Client) *Handler {
	return &Handler{logger: logger, pool: pool, cache: cache}
}

// MountRoutes registers the dashboard route on the company router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	if ev.Cannot(authz.ActionGet, authz.ResourceClass) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	summary, err := h.load(r.Context(), membership.CompanyID)
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) load(ctx context.Context, companyID int64) (Summary, error) {
	key := fmt.Sprintf("akademi:dashboard:%d", companyID)
	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, key).Bytes(); err == nil {
			var s Summary
			if json.Unmarshal(raw, &s) == nil {
				return s, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			h.logger.Warn("dashboard cache read", slog.Any("error", err))
		}
	}
	result, err, _ := h.group.Do(key, func() (any, error) {
		s, err := h.build(ctx, companyID)
		if err != nil {
			return nil, err
		}
		if h.cache != nil {
			if raw, err := json.Marshal(s); err == nil {
				if err := h.cache.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
					h.logger.Warn("dashboard cache write", slog.Any("error", err))
				}
			}
		}
		return s, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return result.(Summary), nil
}

func (h *Handler) build(ctx context.Context, companyID int64) (Summary, error) {
	s := Summary{CompanyID: companyID, GeneratedAt: time.Now().UTC()}
	row := h.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT user_id) FROM memberships WHERE company_id = $1 AND role = 'STUDENT' AND is_active),
			(SELECT COUNT(DISTINCT user_id) FROM memberships WHERE company_id = $1 AND role = 'TEACHER' AND is_active),
			(SELECT COUNT(*) FROM classes WHERE company_id = $1),
			(SELECT COUNT(*) FROM registrations WHERE company_id = $1 AND status = 'DRAFT'),
			(SELECT COUNT(*) FROM subscriptions WHERE company_id = $1 AND status = 'PAST_DUE')`,
		companyID)
	if err := row.Scan(&s.Students, &s.Teachers, &s.Classes, &s.PendingRegistrations, &s.OverdueSubscriptions); err != nil {
		return Summary{}, err
	}
	return s, nil
}
