package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campfirehq/intake-service/internal/api/dto"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/observability"
	apperrors "github.com/campfirehq/intake-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

// GatewayAuth guards gateway-facing routes with the shared token. An empty
// configured token disables the check (local development).
func GatewayAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token != "" && c.Get("X-Gateway-Token") != token {
			return apperrors.NewUnauthorized("invalid gateway token")
		}
		return c.Next()
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
				var rejection *domain.Rejection
				if errors.As(err, &rejection) {
					// Policy rejections are expected outcomes, not faults.
					// Same shape as the admission handler's own rendering.
					body := dto.AdmissionRejected{
						Reason:       string(rejection.Reason),
						Message:      rejection.Message,
						ExistingLink: rejection.ExistingLink,
					}
					if rejection.ResumeAt != nil {
						unix := rejection.ResumeAt.Unix()
						body.ResumeAt = &unix
					}
					c.Status(fiber.StatusConflict)
					err = c.JSON(fiber.Map{"data": body})
					return
				}
				domainErr := apperrors.ToDomainError(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}
