package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

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
	"github.com/akademi-app/akademi/internal/registrations"
	"github.com/akademi-app/akademi/internal/shared"
	"github.com/akademi-app/akademi/internal/users"
	"github.com/akademi-app/akademi/jobs"
	_ "github.com/akademi-app/akademi/testing"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	guard := authz.NewGuard(nil, logger)

	return NewRouter(RouterParams{
		Logger:               logger,
		Config:               &Config{AppRequestTimeout: 5 * time.Second},
		SessionManager:       sessions,
		CSRFManager:          csrf,
		Guard:                guard,
		AuthHandler:          auth.NewHandler(logger, nil, sessions, csrf),
		UsersHandler:         users.NewHandler(logger, nil),
		CompaniesHandler:     companies.NewHandler(logger, nil, guard),
		MembershipsHandler:   memberships.NewHandler(logger, nil),
		CoursesHandler:       courses.NewHandler(logger, nil),
		ClassesHandler:       classes.NewHandler(logger, nil),
		CatalogHandler:       catalog.NewHandler(logger, nil),
		RegistrationsHandler: registrations.NewHandler(logger, nil),
		AttendanceHandler:    attendance.NewHandler(logger, nil),
		GradingHandler:       grading.NewHandler(logger, nil),
		BillingHandler:       billing.NewHandler(logger, nil),
		DashboardHandler:     dashboard.NewHandler(logger, nil, nil),
		JobHandler:           jobs.NewHandler(nil, logger),
	})
}

func TestHealthzIsOpen(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestJobsEndpointsRequireSession(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for anonymous jobs access, got %d", rr.Code)
	}
}
