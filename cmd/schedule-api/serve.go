package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/conf-schedule-api/api/swagger"
	"github.com/noah-isme/conf-schedule-api/internal/handler"
	internalmiddleware "github.com/noah-isme/conf-schedule-api/internal/middleware"
	"github.com/noah-isme/conf-schedule-api/internal/repository"
	"github.com/noah-isme/conf-schedule-api/internal/service"
	"github.com/noah-isme/conf-schedule-api/pkg/cache"
	"github.com/noah-isme/conf-schedule-api/pkg/config"
	"github.com/noah-isme/conf-schedule-api/pkg/database"
	"github.com/noah-isme/conf-schedule-api/pkg/jobs"
	"github.com/noah-isme/conf-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/conf-schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/conf-schedule-api/pkg/middleware/requestid"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(parent context.Context) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db.DB, cfg.Database.MigrationsDir, logr)
		if err != nil {
			return err
		}
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}

	metrics := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Changes.ReleaseTTL, logr, cfg.Redis.Enabled)

	schedules := repository.NewScheduleRepository(db)
	slots := repository.NewSlotRepository(db)
	audit := repository.NewAuditRepository(db)
	availabilities := repository.NewAvailabilityRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	rooms := repository.NewRoomRepository(db)
	mails := repository.NewMailQueueRepository(db)

	validate := validator.New()
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, nil)

	changes := service.NewScheduleChangesService(schedules, slots, cacheService, service.ChangesConfig{
		DraftTTL:      cfg.Changes.DraftTTL,
		ReleaseTTL:    cfg.Changes.ReleaseTTL,
		UnreleasedTTL: cfg.Changes.UnreleasedTTL,
	}, logr)
	notifications := service.NewNotificationService(schedules, slots, logr)

	releaseDeps := service.ScheduleReleaseDeps{
		Schedules: schedules,
		Slots:     slots,
		Audit:     audit,
		Changes:   changes,
		Metrics:   metrics,
		Tx:        db,
		Validator: validate,
		Logger:    logr,
	}

	var queue *jobs.Queue
	if cfg.Notifications.Enabled {
		dispatcher := service.NewNotificationDispatcher(schedules, slots, notifications, mails, metrics, logr)
		queue = jobs.NewQueue("schedule-notifications", dispatcher.Handle, jobs.QueueConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		dispatcher.AttachQueue(queue)
		releaseDeps.Notifier = dispatcher
	}

	releases := service.NewScheduleReleaseService(releaseDeps)
	slotService := service.NewSlotService(service.SlotServiceDeps{
		Slots:       slots,
		Schedules:   schedules,
		Submissions: submissions,
		Rooms:       rooms,
		Audit:       audit,
		Changes:     changes,
		Tx:          db,
		Logger:      logr,
	})
	availabilityService := service.NewAvailabilityService(availabilities, db, logr)
	warnings := service.NewWarningService(schedules, slots, availabilities, submissions, logr)

	router := newRouter(cfg, logr, metrics, handler.Routes{
		Schedules:     handler.NewScheduleHandler(releases, changes, warnings),
		Slots:         handler.NewSlotHandler(slotService),
		Availability:  handler.NewAvailabilityHandler(availabilityService, validate),
		Notifications: handler.NewNotificationHandler(notifications),
		Tokens:        tokens,
		Audit:         audit,
		Logger:        logr,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, routes handler.Routes) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	observability := handler.NewMetricsHandler(metrics.Handler())
	r.GET("/health", observability.Health)
	r.GET("/metrics", observability.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes.Register(r.Group(cfg.APIPrefix))
	return r
}
