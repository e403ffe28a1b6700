package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/streetcats/report-service/internal/observability"
	apperrors "github.com/streetcats/report-service/pkg/util/errorutil"
)

// RateLimiter counts hits per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, allowOrigins string) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,OPTIONS",
	}))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

// ErrorHandler writes errors raised outside the middleware chain, such as
// body limit violations, in the same shape as handler errors.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, err, logger, metrics)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", observability.RequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
	}

	response := fiber.Map{
		"code":  domainErr.Code,
		"error": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		response["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

func rateLimitMiddleware(limiter RateLimiter, logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route := strings.TrimSuffix(c.Path(), "/")
		allowed, err := limiter.Allow(c.UserContext(), route+"|"+c.IP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
		}
		if !allowed {
			metrics.RecordRateLimited(route)
			return apperrors.NewTooManyRequests("Too many requests, try again later")
		}
		return c.Next()
	}
}
