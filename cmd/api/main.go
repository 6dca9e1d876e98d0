package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/counseling-api/api/swagger"
	"github.com/noah-isme/counseling-api/internal/handler"
	"github.com/noah-isme/counseling-api/internal/middleware"
	"github.com/noah-isme/counseling-api/internal/repository"
	"github.com/noah-isme/counseling-api/internal/service"
	"github.com/noah-isme/counseling-api/pkg/cache"
	"github.com/noah-isme/counseling-api/pkg/config"
	"github.com/noah-isme/counseling-api/pkg/database"
	"github.com/noah-isme/counseling-api/pkg/export"
	"github.com/noah-isme/counseling-api/pkg/jobs"
	"github.com/noah-isme/counseling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/counseling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/counseling-api/pkg/middleware/requestid"
)

// @title Counseling API
// @version 1.0.0
// @description Session entitlement, booking, and refund management for counseling centers
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	mappingRepo := repository.NewMappingRepository(db, cfg.Database.LockTimeout)
	scheduleRepo := repository.NewScheduleRepository(db, cfg.Database.LockTimeout)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	extensionRepo := repository.NewExtensionRepository(db, cfg.Database.LockTimeout)
	refundRepo := repository.NewRefundRepository(db)
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	codeStore := repository.NewCodeStore(redisClient, cfg.Verification.CodeTTL)

	cacheClient := redisClient
	if !cfg.Cache.Enabled {
		cacheClient = nil
	}
	cacheRepo := repository.NewCacheRepository(cacheClient, logr)

	// Background notification queue.
	notifySvc := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, metrics, logr)

	// Services.
	catalogSvc := service.NewCatalogService(catalogRepo, cacheRepo, metrics, logr, 10*time.Minute)
	authSvc := service.NewAuthService(userRepo, codeStore, notifySvc, validate, logr, cfg.JWT.Secret, cfg.JWT.Expiration)
	mappingSvc := service.NewMappingService(mappingRepo, userRepo, catalogRepo, cacheRepo, notifySvc, metrics, validate, logr, cfg.Cache.TTL)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, scheduleRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, mappingRepo, availabilityRepo, catalogRepo, notifySvc, validate, logr)
	extensionSvc := service.NewExtensionService(extensionRepo, mappingRepo, notifySvc, validate, logr)
	statements := export.NewStatementGenerator("Counseling Refund Statement")
	refundSvc := service.NewRefundService(refundRepo, mappingRepo, scheduleRepo, userRepo, statements, notifySvc, validate, logr, cfg.Refunds.CoolingOffDays)
	sweeperSvc := service.NewSweeperService(scheduleRepo, mappingRepo, notifySvc, metrics, logr, service.SweeperConfig{
		Interval:      cfg.Sweeper.Interval,
		BatchSize:     cfg.Sweeper.BatchSize,
		ReminderGrace: cfg.Sweeper.ReminderGrace,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifySvc.Start(ctx)
	defer notifySvc.Stop()
	if cfg.Sweeper.Enabled {
		sweeperSvc.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Mappings:     handler.NewMappingHandler(mappingSvc),
		Schedules:    handler.NewScheduleHandler(scheduleSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Extensions:   handler.NewExtensionHandler(extensionSvc),
		Refunds:      handler.NewRefundHandler(refundSvc),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		System:       handler.NewSystemHandler(metrics, sweeperSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
