package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/ndr-engine/internal/carrier"
	"github.com/kursadbilgin/ndr-engine/internal/ratelimit"
	"github.com/kursadbilgin/ndr-engine/internal/service"
	"go.uber.org/zap"
)

const (
	carrierSourceHeader = "X-Carrier-Source"
	webhookLimitScope   = "webhook"
)

// WebhookIngestor is the ingestion entry point exposed to the HTTP layer.
type WebhookIngestor interface {
	Ingest(ctx context.Context, rec carrier.CanonicalRecord) (*service.IngestResult, error)
}

type WebhookHandler struct {
	ingestor   WebhookIngestor
	normalizer *carrier.Normalizer
	now        func() time.Time
}

func NewWebhookHandler(ingestor WebhookIngestor, normalizer *carrier.Normalizer) (*WebhookHandler, error) {
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if normalizer == nil {
		normalizer = carrier.NewNormalizer()
	}
	return &WebhookHandler{
		ingestor:   ingestor,
		normalizer: normalizer,
		now:        time.Now,
	}, nil
}

func RegisterWebhookRoutes(
	router fiber.Router,
	ingestor WebhookIngestor,
	normalizer *carrier.Normalizer,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) error {
	h, err := NewWebhookHandler(ingestor, normalizer)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ndr := router.Group("/ndr")
	ndr.Post("/webhook", RateLimitMiddleware(limiter, webhookLimitScope, logger), h.ReceiveWebhook)
	ndr.Get("/webhook", h.ListFormats)

	return nil
}

// RateLimitMiddleware rejects requests beyond the configured window
// with 429. A limiter backend failure fails open so that carrier
// webhooks are never dropped because redis is down.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, scope string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		allowed, err := limiter.Allow(c.Context(), scope)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("scope", scope),
				zap.Error(err),
			)
			return c.Next()
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}

		return c.Next()
	}
}

type classificationResponse struct {
	Reason      string  `json:"reason"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"`
	Priority    string  `json:"priority"`
	RiskScore   int     `json:"riskScore"`
}

type webhookResponse struct {
	Status         string                  `json:"status"`
	NDRID          string                  `json:"ndrId,omitempty"`
	NDRCode        string                  `json:"ndrCode,omitempty"`
	Classification *classificationResponse `json:"classification,omitempty"`
	Message        string                  `json:"message,omitempty"`
}

type formatContractsResponse struct {
	Formats []carrier.Contract `json:"formats"`
}

func (h *WebhookHandler) ReceiveWebhook(c *fiber.Ctx) error {
	rec, err := h.normalizer.Normalize(
		c.Body(),
		c.Get(fiber.HeaderContentType),
		strings.TrimSpace(c.Get(carrierSourceHeader)),
		h.now().UTC(),
	)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.ingestor.Ingest(c.UserContext(), rec)
	if err != nil {
		return toHTTPError(err)
	}

	if result.Outcome == service.OutcomeSkipped {
		return c.Status(fiber.StatusAccepted).JSON(webhookResponse{
			Status:  string(result.Outcome),
			Message: fmt.Sprintf("no delivery found for awb %q", rec.AWBNumber),
		})
	}

	resp := webhookResponse{
		Status:  string(result.Outcome),
		NDRID:   result.NDR.ID,
		NDRCode: result.NDR.NDRCode,
	}
	if result.Classification != nil {
		resp.Classification = &classificationResponse{
			Reason:      result.Classification.Reason.String(),
			Explanation: result.Classification.Explanation,
			Confidence:  result.Classification.Confidence,
			Priority:    result.Classification.Priority.String(),
			RiskScore:   result.Classification.RiskScore,
		}
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *WebhookHandler) ListFormats(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(formatContractsResponse{
		Formats: h.normalizer.SupportedFormats(),
	})
}
