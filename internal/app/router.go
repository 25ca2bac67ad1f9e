package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/akademi-app/akademi/internal/attendance"
	"github.com/akademi-app/akademi/internal/auth"
	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/billing"
	"github.com/akademi-app/akademi/internal/catalog"
	"github.com/akademi-app/akademi/internal/classes"
	"github.com/akademi-app/akademi/internal/companies"
	"github.com/akademi-app/akademi/internal/courses"
	"github.com/akademi-app/akademi/internal/dashboard"
	"github.com/akademi-app/akademi/internal/grading"
	"github.com/akademi-app/akademi/internal/memberships"
	"github.com/akademi-app/akademi/internal/observability"
	"github.com/akademi-app/akademi/internal/platform/httpx"
	"github.com/akademi-app/akademi/internal/registrations"
	"github.com/akademi-app/akademi/internal/shared"
	"github.com/akademi-app/akademi/internal/users"
	"github.com/akademi-app/akademi/jobs"
)

// RouterParams groups dependencies for building the HTTP router. The table
// is assembled once at startup and never mutated afterwards; handlers are
// passed by reference into the pipeline.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Guard

	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	CompaniesHandler     *companies.Handler
	MembershipsHandler   *memberships.Handler
	CoursesHandler       *courses.Handler
	ClassesHandler       *classes.Handler
	CatalogHandler       *catalog.Handler
	RegistrationsHandler *registrations.Handler
	AttendanceHandler    *attendance.Handler
	GradingHandler       *grading.Handler
	BillingHandler       *billing.Handler
	DashboardHandler     *dashboard.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Akademi defaults. Everything
// under /api/v1/companies/{companyID} sits behind the authorization guard.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Provider callbacks authenticate by signature, not session.
	params.BillingHandler.MountWebhookRoutes(r)

	r.Route("/api/v1/companies", func(r chi.Router) {
		params.CompaniesHandler.MountRoutes(r)

		r.Route("/{companyID}", func(r chi.Router) {
			r.Use(params.Guard.Protect())

			params.CompaniesHandler.MountCompanyRoutes(r)
			params.MembershipsHandler.MountRoutes(r)
			params.UsersHandler.MountRoutes(r)
			params.CatalogHandler.MountRoutes(r)
			params.CoursesHandler.MountRoutes(r)
			params.ClassesHandler.MountRoutes(r)
			params.RegistrationsHandler.MountRoutes(r)
			params.AttendanceHandler.MountRoutes(r)
			params.GradingHandler.MountRoutes(r)
			params.BillingHandler.MountCompanyRoutes(r)
			params.DashboardHandler.MountRoutes(r)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(requireSession(params.Guard))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		// Open for the Prometheus scraper, which carries no session.
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// requireSession rejects requests without an authenticated actor. Used for
// operational endpoints that sit outside any company scope.
func requireSession(guard authz.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := guard.RequireActor(r.Context()); err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
