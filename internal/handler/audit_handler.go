package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
)

type AuditHandler struct {
	audits repository.AuditLogRepository
	now    func() time.Time
}

func NewAuditHandler(audits repository.AuditLogRepository) (*AuditHandler, error) {
	if audits == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	return &AuditHandler{audits: audits, now: time.Now}, nil
}

func RegisterAuditRoutes(router fiber.Router, audits repository.AuditLogRepository) error {
	h, err := NewAuditHandler(audits)
	if err != nil {
		return err
	}

	router.Get("/ndr/audit/summary", h.GetSummary)

	return nil
}

type auditCountItem struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type auditSummaryResponse struct {
	Total                int64            `json:"total"`
	Today                int64            `json:"today"`
	SuccessRate          float64          `json:"successRate"`
	MeanConfidence       float64          `json:"meanConfidence"`
	MeanProcessingTimeMS int64            `json:"meanProcessingTimeMs"`
	ByAction             []auditCountItem `json:"byAction"`
	ByStatus             []auditCountItem `json:"byStatus"`
}

func (h *AuditHandler) GetSummary(c *fiber.Ctx) error {
	stats, err := h.audits.Stats(c.UserContext(), h.now().UTC())
	if err != nil {
		return toHTTPError(err)
	}

	byAction := make([]auditCountItem, 0, len(stats.ByAction))
	for _, item := range stats.ByAction {
		byAction = append(byAction, auditCountItem{Key: item.ActionType.String(), Count: item.Count})
	}
	byStatus := make([]auditCountItem, 0, len(stats.ByStatus))
	for _, item := range stats.ByStatus {
		byStatus = append(byStatus, auditCountItem{Key: item.Status.String(), Count: item.Count})
	}

	return c.Status(fiber.StatusOK).JSON(auditSummaryResponse{
		Total:                stats.Total,
		Today:                stats.Today,
		SuccessRate:          stats.SuccessRate,
		MeanConfidence:       stats.MeanConfidence,
		MeanProcessingTimeMS: stats.MeanProcessingTime.Milliseconds(),
		ByAction:             byAction,
		ByStatus:             byStatus,
	})
}
