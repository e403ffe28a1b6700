package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/streetcats/report-service/internal/api/http"
	"github.com/streetcats/report-service/internal/api/http/handlers"
	"github.com/streetcats/report-service/internal/auth"
	"github.com/streetcats/report-service/internal/cache"
	"github.com/streetcats/report-service/internal/config"
	"github.com/streetcats/report-service/internal/events"
	"github.com/streetcats/report-service/internal/media"
	"github.com/streetcats/report-service/internal/observability"
	"github.com/streetcats/report-service/internal/persistence"
	"github.com/streetcats/report-service/internal/service"
	"github.com/streetcats/report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pingers := map[string]handlers.Pinger{cfg.Storage.Driver: store.reports}
	var (
		statsCache  service.StatsCache
		authLimiter httptransport.RateLimiter
	)
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	if redis != nil {
		defer redis.Close()
		pingers["redis"] = redis
		statsCache = cache.NewStatsCache(redis.Client, cfg.Redis.StatsCacheTTL())
		if cfg.Redis.AuthRateLimitPerMin > 0 {
			authLimiter = cache.NewLimiter(redis.Client, "auth", cfg.Redis.AuthRateLimitPerMin, time.Minute)
		}
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: store.users})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: store.reports,
		Dispatcher: dispatcher,
		StatsCache: statsCache,
		Logger:     logger,
	})

	objectStore, mediaDir, err := openMediaStore(cfg.Media)
	if err != nil {
		logger.Fatal("failed to init media store", zap.String("driver", cfg.Media.Driver), zap.Error(err))
	}
	policy := media.Policy{MaxFiles: cfg.Media.MaxFiles, MaxFileBytes: cfg.Media.MaxFileBytes()}
	mediaService := service.NewMediaService(objectStore, policy, logger)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))
	worker.RegisterStatsInvalidation(dispatcher, statsCache, logger)
	worker.RegisterEventMetrics(dispatcher, metrics)

	app := httptransport.NewApp(httptransport.AppOptions{
		Name:           cfg.App.Name,
		BodyLimit:      policy.MaxFiles * int(policy.MaxFileBytes),
		RequestTimeout: cfg.App.RequestTimeout(),
		AllowOrigins:   cfg.App.CORSAllowOrigins,
		Logger:         logger,
		Metrics:        metrics,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers),
		Auth:           handlers.NewAuthHandler(authService),
		Reports:        handlers.NewReportsHandler(reportService),
		Upload:         handlers.NewUploadHandler(mediaService),
		AuthMiddleware: auth.NewMiddleware(authService),
		AuthLimiter:    authLimiter,
		Metrics:        metrics,
		Logger:         logger,
		MediaDir:       mediaDir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("report service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("media", cfg.Media.Driver))

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
