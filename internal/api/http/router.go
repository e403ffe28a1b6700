package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/api/http/handlers"
	"github.com/streetcats/report-service/internal/auth"
	"github.com/streetcats/report-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	Upload         *handlers.UploadHandler
	AuthMiddleware *auth.Middleware
	// AuthLimiter throttles register/login when set.
	AuthLimiter RateLimiter
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// MediaDir is served at /uploads when set.
	MediaDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}
	if cfg.MediaDir != "" {
		app.Static("/uploads", cfg.MediaDir)
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	if cfg.AuthLimiter != nil {
		authGroup.Use(rateLimitMiddleware(cfg.AuthLimiter, cfg.Logger, cfg.Metrics))
	}
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	reports := api.Group("/reports")
	reports.Get("/", cfg.Reports.List)
	reports.Post("/", cfg.AuthMiddleware.Optional, cfg.Reports.Create)
	reports.Get("/me", cfg.AuthMiddleware.Require, cfg.Reports.Mine)
	reports.Get("/stats", cfg.Reports.Stats)
	reports.Get("/stats/me", cfg.AuthMiddleware.Require, cfg.Reports.MyStats)
	reports.Patch("/:id/claim", cfg.AuthMiddleware.Require, cfg.Reports.Claim)
	reports.Patch("/:id/resolve", cfg.AuthMiddleware.Require, cfg.Reports.Resolve)

	api.Post("/upload/media", cfg.Upload.Media)
}
