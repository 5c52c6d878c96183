package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/service"
)

// OutreachDispatcher is the outreach surface exposed to the HTTP layer.
type OutreachDispatcher interface {
	Dispatch(ctx context.Context, ndrID string, req service.DispatchRequest) (*domain.OutreachAttempt, error)
	History(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error)
}

type OutreachHandler struct {
	service OutreachDispatcher
}

func NewOutreachHandler(service OutreachDispatcher) (*OutreachHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("outreach service is required")
	}
	return &OutreachHandler{service: service}, nil
}

func RegisterOutreachRoutes(router fiber.Router, service OutreachDispatcher) error {
	h, err := NewOutreachHandler(service)
	if err != nil {
		return err
	}

	ndr := router.Group("/ndr")
	ndr.Post("/:id/outreach", h.DispatchOutreach)
	ndr.Get("/:id/outreach", h.GetOutreachHistory)

	return nil
}

type dispatchOutreachRequest struct {
	Channel       string  `json:"channel"`
	TemplateID    *string `json:"templateId,omitempty"`
	CustomMessage *string `json:"customMessage,omitempty"`
	Language      *string `json:"language,omitempty"`
}

type outreachAttemptResponse struct {
	ID                string     `json:"id"`
	NDRID             string     `json:"ndrId"`
	Channel           string     `json:"channel"`
	AttemptNumber     int        `json:"attemptNumber"`
	TemplateID        *string    `json:"templateId,omitempty"`
	MessageContent    string     `json:"messageContent"`
	Status            string     `json:"status"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	ErrorCode         *string    `json:"errorCode,omitempty"`
	ErrorMessage      *string    `json:"errorMessage,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type dispatchOutreachResponse struct {
	Success  bool                    `json:"success"`
	Outreach outreachAttemptResponse `json:"outreach"`
	Message  string                  `json:"message"`
}

type outreachHistoryResponse struct {
	Attempts []outreachAttemptResponse `json:"attempts"`
	Total    int                       `json:"total"`
}

func (h *OutreachHandler) DispatchOutreach(c *fiber.Ctx) error {
	var req dispatchOutreachRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	ndrID := strings.TrimSpace(c.Params("id"))
	attempt, err := h.service.Dispatch(c.UserContext(), ndrID, service.DispatchRequest{
		Channel:       channel,
		TemplateID:    req.TemplateID,
		CustomMessage: req.CustomMessage,
		Language:      req.Language,
	})
	if err != nil {
		return toHTTPError(err)
	}

	// A failed provider send is a processed request, not a server
	// error: the caller reads success=false and the recorded attempt.
	message := "outreach sent"
	if attempt.Status == domain.OutreachStatusFailed {
		message = "outreach failed"
		if attempt.ErrorMessage != nil {
			message = *attempt.ErrorMessage
		}
	}

	return c.Status(fiber.StatusOK).JSON(dispatchOutreachResponse{
		Success:  attempt.Status == domain.OutreachStatusSent,
		Outreach: toOutreachAttemptResponse(attempt),
		Message:  message,
	})
}

func (h *OutreachHandler) GetOutreachHistory(c *fiber.Ctx) error {
	ndrID := strings.TrimSpace(c.Params("id"))
	attempts, err := h.service.History(c.UserContext(), ndrID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]outreachAttemptResponse, 0, len(attempts))
	for i := range attempts {
		responses = append(responses, toOutreachAttemptResponse(&attempts[i]))
	}

	return c.Status(fiber.StatusOK).JSON(outreachHistoryResponse{
		Attempts: responses,
		Total:    len(responses),
	})
}

func toOutreachAttemptResponse(a *domain.OutreachAttempt) outreachAttemptResponse {
	if a == nil {
		return outreachAttemptResponse{}
	}

	return outreachAttemptResponse{
		ID:                a.ID,
		NDRID:             a.NDRID,
		Channel:           a.Channel.String(),
		AttemptNumber:     a.AttemptNumber,
		TemplateID:        a.TemplateID,
		MessageContent:    a.MessageContent,
		Status:            a.Status.String(),
		SentAt:            a.SentAt,
		ProviderMessageID: a.ProviderMessageID,
		ErrorCode:         a.ErrorCode,
		ErrorMessage:      a.ErrorMessage,
		CreatedAt:         a.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
