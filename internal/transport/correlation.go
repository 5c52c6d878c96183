package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/ndr-engine/internal/observability"
)

// RequestCorrelation tags every request with a correlation id, taken
// from the X-Request-ID header when the caller supplies one. The id is
// placed in the request's user context for downstream loggers and
// echoed on the response.
func RequestCorrelation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		correlationID := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		c.Set(fiber.HeaderXRequestID, correlationID)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), correlationID))

		return c.Next()
	}
}
