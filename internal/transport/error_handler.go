package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"go.uber.org/zap"
)

// ErrorHandler maps errors escaping the handlers to JSON responses.
// Domain sentinels that handlers did not translate themselves still get
// the right status code here.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.Is(err, domain.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, domain.ErrConflict):
			code = fiber.StatusConflict
		}
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		} else {
			logger.Warn("request rejected",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
