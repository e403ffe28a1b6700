package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/observability"
)

// AppOptions configures the Fiber application.
type AppOptions struct {
	Name           string
	BodyLimit      int
	RequestTimeout time.Duration
	AllowOrigins   string
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// multipartOverhead leaves room for form boundaries on top of file bytes.
const multipartOverhead = 1 << 20

// NewApp builds the Fiber app with the error shape and global middlewares.
func NewApp(opts AppOptions) *fiber.App {
	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	allowOrigins := opts.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app := fiber.New(fiber.Config{
		AppName:      opts.Name,
		BodyLimit:    bodyLimit + multipartOverhead,
		ErrorHandler: ErrorHandler(opts.Logger, opts.Metrics),
	})
	RegisterMiddlewares(app, opts.Logger, opts.Metrics, opts.RequestTimeout, allowOrigins)
	return app
}
