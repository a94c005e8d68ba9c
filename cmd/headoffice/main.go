package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/retailhq/headoffice/internal/app"
	"github.com/retailhq/headoffice/internal/auth"
	crmhttp "github.com/retailhq/headoffice/internal/crm/http"
	"github.com/retailhq/headoffice/internal/dashboard"
	dashboardhttp "github.com/retailhq/headoffice/internal/dashboard/http"
	exceptionshttp "github.com/retailhq/headoffice/internal/exceptions/http"
	inventoryhttp "github.com/retailhq/headoffice/internal/inventory/http"
	"github.com/retailhq/headoffice/internal/observability"
	"github.com/retailhq/headoffice/internal/platform/cache"
	posaudithttp "github.com/retailhq/headoffice/internal/posaudit/http"
	"github.com/retailhq/headoffice/internal/rbac"
	"github.com/retailhq/headoffice/internal/reporting/format"
	saleshttp "github.com/retailhq/headoffice/internal/sales/http"
	"github.com/retailhq/headoffice/internal/shared"
	vendorshttp "github.com/retailhq/headoffice/internal/vendors/http"
	"github.com/retailhq/headoffice/jobs"
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

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	services, err := app.NewServices(cfg, redisClient, logger, metrics.Registerer())
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}
	go services.Cache.ListenForInvalidation(ctx)

	formatter, err := format.New(cfg.DisplayLocale, cfg.CurrencyCode)
	if err != nil {
		logger.Error("init formatter", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "headoffice_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	rbacService := rbac.NewService(rbac.DefaultPolicy())
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	boards := dashboard.NewRegistry(ctx, services.Composer.Load, cfg.DashboardIdleTTL, logger, metrics.Registerer())
	go boards.Run(ctx, time.Minute)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(services.API, rbacService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       auth.NewHandler(logger, authService, sessionManager, csrfManager, boards),
		RolesHandler:      rbac.NewRolesHandler(logger, rbacService, rbacMiddleware),
		SalesHandler:      saleshttp.NewHandler(logger, services.Sales, rbacMiddleware),
		InventoryHandler:  inventoryhttp.NewHandler(logger, services.Inventory, rbacMiddleware),
		CRMHandler:        crmhttp.NewHandler(logger, services.CRM, rbacMiddleware),
		ExceptionsHandler: exceptionshttp.NewHandler(logger, services.Exceptions, formatter, rbacMiddleware),
		VendorsHandler:    vendorshttp.NewHandler(logger, services.Vendors, rbacMiddleware),
		POSAuditHandler:   posaudithttp.NewHandler(logger, services.POSAudit, rbacMiddleware),
		DashboardHandler:  dashboardhttp.NewHandler(logger, boards, rbacMiddleware),
		CacheHandler:      app.NewCacheHandler(logger, services.Cache, jobsClient, rbacMiddleware),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
