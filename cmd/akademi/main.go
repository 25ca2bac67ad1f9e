package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/akademi-app/akademi/internal/app"
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
	"github.com/akademi-app/akademi/internal/platform/cache"
	"github.com/akademi-app/akademi/internal/platform/db"
	"github.com/akademi-app/akademi/internal/registrations"
	"github.com/akademi-app/akademi/internal/shared"
	"github.com/akademi-app/akademi/internal/users"
	"github.com/akademi-app/akademi/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "akademi_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	guard := authz.NewGuard(authz.NewPGResolver(dbpool), logger)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersService := users.NewService(users.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, usersService)

	companiesService := companies.NewService(companies.NewRepository(dbpool))
	companiesHandler := companies.NewHandler(logger, companiesService, guard)

	membershipsService := memberships.NewService(memberships.NewRepository(dbpool), auditLogger, logger)
	membershipsHandler := memberships.NewHandler(logger, membershipsService)

	catalogHandler := catalog.NewHandler(logger, catalog.NewRepository(dbpool))
	coursesHandler := courses.NewHandler(logger, courses.NewRepository(dbpool))
	classesHandler := classes.NewHandler(logger, classes.NewRepository(dbpool))

	billingService := billing.NewService(billing.NewRepository(dbpool), idempotencyStore, jobsClient, logger, cfg.BillingWebhookSecret)
	billingHandler := billing.NewHandler(logger, billingService)

	registrationsService := registrations.NewService(registrations.NewRepository(dbpool), billingService, auditLogger, logger)
	registrationsHandler := registrations.NewHandler(logger, registrationsService)

	attendanceHandler := attendance.NewHandler(logger, attendance.NewRepository(dbpool))

	gradingService := grading.NewService(grading.NewRepository(dbpool))
	gradingHandler := grading.NewHandler(logger, gradingService)

	dashboardHandler := dashboard.NewHandler(logger, dbpool, redisClient)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		Guard:                guard,
		AuthHandler:          authHandler,
		UsersHandler:         usersHandler,
		CompaniesHandler:     companiesHandler,
		MembershipsHandler:   membershipsHandler,
		CoursesHandler:       coursesHandler,
		ClassesHandler:       classesHandler,
		CatalogHandler:       catalogHandler,
		RegistrationsHandler: registrationsHandler,
		AttendanceHandler:    attendanceHandler,
		GradingHandler:       gradingHandler,
		BillingHandler:       billingHandler,
		DashboardHandler:     dashboardHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
