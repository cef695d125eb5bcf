package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-admin-console/api/swagger"
	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/handler"
	"github.com/noah-isme/lms-admin-console/internal/middleware"
	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/internal/repository"
	"github.com/noah-isme/lms-admin-console/internal/service"
	"github.com/noah-isme/lms-admin-console/pkg/cache"
	"github.com/noah-isme/lms-admin-console/pkg/config"
	"github.com/noah-isme/lms-admin-console/pkg/database"
	"github.com/noah-isme/lms-admin-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-admin-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-admin-console/pkg/middleware/requestid"
	"github.com/noah-isme/lms-admin-console/pkg/storage"
)

// @title LMS Admin Console Gateway
// @version 0.1.0
// @description Collection management gateway for the LMS admin consoles
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres backs the audit trail and import history; the gateway keeps
	// serving consoles without it.
	var auditRepo *repository.AuditRepository
	var importRepo *repository.ImportJobRepository
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Warnw("postgres unavailable, audit trail disabled", "error", err)
	} else {
		defer db.Close() //nolint:errcheck
		auditRepo = repository.NewAuditRepository(db)
		importRepo = repository.NewImportJobRepository(db)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats cache disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Stats.CacheTTL,
		logr,
		redisClient != nil,
	)

	platform := gateway.NewPlatformClient(cfg.Platform, metricsSvc, logr)

	consoleSvc := service.NewConsoleService(platform, service.ConsoleServiceConfig{
		DefaultPageSize:  cfg.Console.DefaultPageSize,
		MaxPageSize:      cfg.Console.MaxPageSize,
		SnapshotPageSize: cfg.Console.SnapshotPageSize,
		IdleTTL:          cfg.Console.IdleTTL,
		SweepInterval:    cfg.Console.SweepInterval,
	}, logr)
	consoleSvc.SetSessionGauge(metricsSvc)
	go consoleSvc.Run(ctx)

	statsSvc := service.NewStatsService(platform, cacheSvc, logr)

	validate := validator.New()
	transitionSvc := service.NewTransitionService(platform, auditRepo, statsSvc, cfg.Console.UndoWindow, validate, logr)
	importSvc := service.NewImportService(platform, importRepo, statsSvc, auditRepo, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportStore, signer, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		Workers:         cfg.Exports.WorkerConcurrency,
		Retries:         cfg.Exports.WorkerRetries,
	}, logr)
	exportSvc.Start(ctx)
	defer exportSvc.Stop()

	bulkSvc := service.NewBulkService(platform, consoleSvc, statsSvc, auditRepo, exportSvc, validate, logr)
	historySvc := service.NewHistoryService(nil, nil, logr)
	if db != nil {
		historySvc = service.NewHistoryService(auditRepo, importRepo, logr)
	}
	authSvc := service.NewAuthService(cfg.JWT.Secret)

	consoleHandler := handler.NewConsoleHandler(consoleSvc, statsSvc)
	recordHandler := handler.NewRecordHandler(consoleSvc, transitionSvc, historySvc)
	bulkHandler := handler.NewBulkHandler(consoleSvc, bulkSvc, importSvc, historySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, consoleSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/system/metrics", middleware.RequireRoles(models.RoleSuperAdmin), metricsHandler.System)
	secured.GET("/exports/jobs/:id", exportHandler.Status)

	consoles := secured.Group("/consoles/:kind")
	{
		consoles.POST("/mount", consoleHandler.Mount)
		consoles.DELETE("", consoleHandler.Unmount)
		consoles.GET("/view", consoleHandler.View)
		consoles.PUT("/view", consoleHandler.UpdateView)
		consoles.PATCH("/selection", consoleHandler.UpdateSelection)
		consoles.POST("/refresh", consoleHandler.Refresh)
		consoles.GET("/stats", consoleHandler.Stats)
		consoles.GET("/imports", bulkHandler.ImportHistory)
		consoles.GET("/records/:id/audit", recordHandler.Trail)

		mutating := consoles.Group("")
		mutating.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
		{
			mutating.POST("/records/:id/transition", recordHandler.Transition)
			mutating.POST("/records/:id/undo", recordHandler.Undo)
			mutating.POST("/bulk", bulkHandler.Apply)
			mutating.POST("/import", bulkHandler.Import)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
