package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/streamline-hs/enrollment-portal-api/api/swagger"
	"github.com/streamline-hs/enrollment-portal-api/internal/handler"
	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	"github.com/streamline-hs/enrollment-portal-api/internal/router"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
	"github.com/streamline-hs/enrollment-portal-api/pkg/logger"
)

// @title Enrollment Portal API
// @version 1.0.0
// @description School enrollment portal: student application flow and admin review
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store       kvstore.Store
		redisClient *redis.Client
	)
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		redisClient, err = kvstore.NewRedisClient(cfg.Store.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", err)
		}
		store = kvstore.NewRedis(redisClient)
	case config.StoreBackendPostgres:
		db, err := kvstore.NewPostgresDB(cfg.Store.Postgres)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect postgres", "error", err)
		}
		defer db.Close() //nolint:errcheck
		store = kvstore.NewPostgres(db)
	default:
		store = kvstore.NewMemory()
	}

	if redisClient == nil && cfg.Cache.Enabled {
		redisClient, err = kvstore.NewRedisClient(cfg.Store.Redis)
		if err != nil {
			logr.Sugar().Warnw("summary cache disabled, redis unreachable", "error", err)
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		logr.Sugar().Fatalw("failed to hash admin credential", "error", err)
	}

	userRepo := repository.NewUserRepository(store)
	draftRepo := repository.NewDraftRepository(store)
	appRepo := repository.NewApplicationRepository(store)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, appRepo, draftRepo, validate, logr, service.AuthConfig{
		AdminEmail:        cfg.Admin.Email,
		AdminPasswordHash: adminHash,
		TokenSecret:       cfg.JWT.Secret,
		TokenExpiry:       cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	paymentService := service.NewPaymentService(cfg.Payment, metricsService, logr)
	workflowService := service.NewWorkflowService(draftRepo, appRepo, paymentService, service.NewFormValidator(), models.DefaultRequirements(), cacheRepo, metricsService, logr)
	adminService := service.NewAdminService(appRepo, cacheRepo, metricsService, logr, cfg.Cache)
	exportService := service.NewExportService(appRepo, cfg.Exports, metricsService, logr)

	exportService.Start(ctx)
	defer exportService.Stop()

	engine := router.New(cfg, logr, authService, metricsService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Enrollment: handler.NewEnrollmentHandler(workflowService),
		Admin:      handler.NewAdminHandler(adminService, exportService),
		Metrics:    handler.NewMetricsHandler(metricsService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
