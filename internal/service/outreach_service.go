package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/ndr-engine/internal/adapter"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/events"
	"github.com/kursadbilgin/ndr-engine/internal/observability"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultTemplateID = "ndr_followup"
	defaultLanguage   = "en"
)

// defaultTemplates are keyed by template id, then language. They are
// rendered with {{name}}, {{orderNumber}}, and {{awb}} placeholders
// from the linked order and delivery. An unknown language falls back
// to English.
var defaultTemplates = map[string]map[string]string{
	defaultTemplateID: {
		"en": "Hi {{name}}, we could not deliver your order {{orderNumber}} (AWB {{awb}}). Please reply to reschedule or confirm your availability.",
		"hi": "नमस्ते {{name}}, हम आपका ऑर्डर {{orderNumber}} (AWB {{awb}}) डिलीवर नहीं कर सके। कृपया पुनर्निर्धारण या उपलब्धता की पुष्टि के लिए उत्तर दें।",
	},
	"ndr_address": {
		"en": "Hi {{name}}, the courier could not find the address for order {{orderNumber}} (AWB {{awb}}). Please share the correct address or a nearby landmark.",
		"hi": "नमस्ते {{name}}, कूरियर को ऑर्डर {{orderNumber}} (AWB {{awb}}) का पता नहीं मिला। कृपया सही पता या नज़दीकी लैंडमार्क साझा करें।",
	},
	"ndr_cod_reminder": {
		"en": "Hi {{name}}, your order {{orderNumber}} (AWB {{awb}}) is a cash-on-delivery shipment. Please keep the payment ready for the next attempt.",
		"hi": "नमस्ते {{name}}, आपका ऑर्डर {{orderNumber}} (AWB {{awb}}) कैश-ऑन-डिलीवरी शिपमेंट है। कृपया अगले प्रयास के लिए भुगतान तैयार रखें।",
	},
}

// BusinessHours is the local-time window inside which automatic
// outreach may fire. Start is inclusive, End exclusive.
type BusinessHours struct {
	Start    int
	End      int
	Location *time.Location
}

func (h BusinessHours) contains(t time.Time) bool {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	hour := t.In(loc).Hour()
	return hour >= h.Start && hour < h.End
}

// DispatchRequest is one manual or automatic outreach instruction.
type DispatchRequest struct {
	Channel       domain.Channel
	TemplateID    *string
	CustomMessage *string
	Language      *string
}

type OutreachService struct {
	ndrs        repository.NDRRepository
	deliveries  repository.DeliveryRepository
	outreach    repository.OutreachAttemptRepository
	audits      repository.AuditLogRepository
	adapters    map[domain.Channel]adapter.Adapter
	publisher   events.Publisher
	hours       BusinessHours
	autoChannel domain.Channel
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewOutreachService(
	ndrs repository.NDRRepository,
	deliveries repository.DeliveryRepository,
	outreach repository.OutreachAttemptRepository,
	audits repository.AuditLogRepository,
	adapters map[domain.Channel]adapter.Adapter,
	publisher events.Publisher,
	hours BusinessHours,
	autoChannel domain.Channel,
	logger *zap.Logger,
) (*OutreachService, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one channel adapter is required")
	}
	if !autoChannel.IsValid() {
		return nil, fmt.Errorf("invalid auto outreach channel %q", autoChannel)
	}
	if _, ok := adapters[autoChannel]; !ok {
		return nil, fmt.Errorf("no adapter configured for auto outreach channel %q", autoChannel)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OutreachService{
		ndrs:        ndrs,
		deliveries:  deliveries,
		outreach:    outreach,
		audits:      audits,
		adapters:    adapters,
		publisher:   publisher,
		hours:       hours,
		autoChannel: autoChannel,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *OutreachService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// log returns the service logger enriched with the request's
// correlation id when the context carries one.
func (s *OutreachService) log(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(s.logger, ctx)
}

// Dispatch performs one outreach attempt for the NDR and records it.
// The attempt row is written for both send outcomes; a returned attempt
// with FAILED status is not an error. Validation failures return before
// any row is written.
func (s *OutreachService) Dispatch(ctx context.Context, ndrID string, req DispatchRequest) (*domain.OutreachAttempt, error) {
	return s.dispatch(ctx, ndrID, req, domain.ActionOutreachAttempt)
}

// dispatch is the shared manual/automatic send path. Each completed
// send writes exactly one audit entry whose action type names the path
// that initiated it.
func (s *OutreachService) dispatch(ctx context.Context, ndrID string, req DispatchRequest, action domain.ActionType) (*domain.OutreachAttempt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(ndrID) == "" {
		return nil, fmt.Errorf("%w: ndr id is required", domain.ErrValidation)
	}
	if !req.Channel.IsValid() {
		return nil, fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, req.Channel)
	}

	channelAdapter, ok := s.adapters[req.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: channel %q is not configured", domain.ErrValidation, req.Channel)
	}

	ndr, err := s.ndrs.GetByID(ctx, strings.TrimSpace(ndrID))
	if err != nil {
		return nil, err
	}

	delivery, err := s.deliveries.GetByID(ctx, ndr.DeliveryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery %q: %w", ndr.DeliveryID, err)
	}
	order, err := s.deliveries.GetOrder(ctx, delivery.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %q: %w", delivery.OrderID, err)
	}

	recipient := order.CustomerPhone
	if req.Channel.RequiresEmail() {
		recipient = order.CustomerEmail
	}
	if strings.TrimSpace(recipient) == "" {
		return nil, fmt.Errorf("%w: order %q has no contact for channel %q", domain.ErrValidation, order.ID, req.Channel)
	}

	content, templateID, err := s.resolveContent(req, order, delivery)
	if err != nil {
		return nil, err
	}

	count, err := s.outreach.CountByNDRID(ctx, ndr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count outreach attempts: %w", err)
	}
	attemptNumber := int(count) + 1

	variables := map[string]string{
		"name":        order.CustomerName,
		"orderNumber": order.OrderNumber,
		"awb":         delivery.AWBNumber,
	}

	sendStart := s.now()
	sendResult, sendErr := channelAdapter.Send(ctx, recipient, content, variables)
	sendDuration := s.now().Sub(sendStart)
	s.metrics.ObserveAdapterSendDuration(string(req.Channel), sendDuration)

	attempt := s.buildAttempt(ndr.ID, req.Channel, attemptNumber, templateID, content, sendResult, sendErr)

	// The attempt row must survive request cancellation so that failed
	// sends stay visible in history.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.outreach.Create(persistCtx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record outreach attempt: %w", err)
	}

	s.metrics.IncOutreach(string(req.Channel), string(attempt.Status))
	s.auditOutreach(persistCtx, ndr, action, attempt, sendErr, sendDuration)

	if sendErr != nil {
		s.log(ctx).Warn("outreach send failed",
			zap.String("ndrId", ndr.ID),
			zap.String("channel", string(req.Channel)),
			zap.Int("attemptNumber", attemptNumber),
			zap.Bool("transient", adapter.IsTransient(sendErr)),
			zap.Error(sendErr),
		)
		return attempt, nil
	}

	s.markContacted(persistCtx, ndr)

	s.log(ctx).Info("outreach sent",
		zap.String("ndrId", ndr.ID),
		zap.String("channel", string(req.Channel)),
		zap.Int("attemptNumber", attemptNumber),
	)

	return attempt, nil
}

// AutoTrigger runs the automatic outreach path for a newly created NDR.
// Priority and business-hours gates are re-evaluated here so that async
// execution cannot fire outside the window the NDR was queued in.
func (s *OutreachService) AutoTrigger(ctx context.Context, ndrID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ndr, err := s.ndrs.GetByID(ctx, ndrID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log(ctx).Warn("auto outreach target disappeared", zap.String("ndrId", ndrID))
			return nil
		}
		return err
	}

	if !ndr.Priority.AutoOutreachEligible() {
		s.metrics.IncOutreachSkipped("priority")
		return nil
	}
	if ndr.Status != domain.NDRStatusOpen {
		s.metrics.IncOutreachSkipped("not_open")
		return nil
	}
	if !s.hours.contains(s.now()) {
		s.metrics.IncOutreachSkipped("after_hours")
		s.log(ctx).Info("auto outreach suppressed outside business hours",
			zap.String("ndrId", ndr.ID),
			zap.String("priority", string(ndr.Priority)),
		)
		return nil
	}

	templateID := defaultTemplateID
	_, err = s.dispatch(ctx, ndr.ID, DispatchRequest{
		Channel:    s.autoChannel,
		TemplateID: &templateID,
	}, domain.ActionAutoOutreach)
	if err != nil {
		// The dispatch never reached the attempt write, so no entry
		// exists for this decision yet.
		s.auditAutoOutreach(ctx, ndr, domain.AuditStatusFailed, err.Error())
		return fmt.Errorf("auto outreach dispatch failed: %w", err)
	}

	return nil
}

// History returns the attempts for an NDR newest-first.
func (s *OutreachService) History(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error) {
	if strings.TrimSpace(ndrID) == "" {
		return nil, fmt.Errorf("%w: ndr id is required", domain.ErrValidation)
	}

	if _, err := s.ndrs.GetByID(ctx, strings.TrimSpace(ndrID)); err != nil {
		return nil, err
	}

	return s.outreach.ListByNDRID(ctx, strings.TrimSpace(ndrID))
}

func (s *OutreachService) resolveContent(req DispatchRequest, order *domain.Order, delivery *domain.Delivery) (string, *string, error) {
	if req.CustomMessage != nil && strings.TrimSpace(*req.CustomMessage) != "" {
		return renderTemplate(*req.CustomMessage, order, delivery), nil, nil
	}

	templateID := defaultTemplateID
	if req.TemplateID != nil && strings.TrimSpace(*req.TemplateID) != "" {
		templateID = strings.TrimSpace(*req.TemplateID)
	}

	variants, ok := defaultTemplates[templateID]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown template %q", domain.ErrValidation, templateID)
	}

	language := defaultLanguage
	if req.Language != nil && strings.TrimSpace(*req.Language) != "" {
		language = strings.ToLower(strings.TrimSpace(*req.Language))
	}
	template, ok := variants[language]
	if !ok {
		template = variants[defaultLanguage]
	}

	return renderTemplate(template, order, delivery), &templateID, nil
}

func renderTemplate(template string, order *domain.Order, delivery *domain.Delivery) string {
	replacer := strings.NewReplacer(
		"{{name}}", order.CustomerName,
		"{{orderNumber}}", order.OrderNumber,
		"{{awb}}", delivery.AWBNumber,
	)
	return replacer.Replace(template)
}

func (s *OutreachService) buildAttempt(
	ndrID string,
	channel domain.Channel,
	attemptNumber int,
	templateID *string,
	content string,
	sendResult *adapter.SendResult,
	sendErr error,
) *domain.OutreachAttempt {
	attempt := &domain.OutreachAttempt{
		ID:             uuid.NewString(),
		NDRID:          ndrID,
		Channel:        channel,
		AttemptNumber:  attemptNumber,
		TemplateID:     templateID,
		MessageContent: content,
		Status:         domain.OutreachStatusSent,
	}

	if sendErr == nil {
		sentAt := s.now().UTC()
		attempt.SentAt = &sentAt
		if sendResult != nil && strings.TrimSpace(sendResult.ProviderMessageID) != "" {
			attempt.ProviderMessageID = &sendResult.ProviderMessageID
		}
		return attempt
	}

	attempt.Status = domain.OutreachStatusFailed
	message := sendErr.Error()
	attempt.ErrorMessage = &message

	var adapterErr *adapter.AdapterError
	if errors.As(sendErr, &adapterErr) && strings.TrimSpace(adapterErr.Code) != "" {
		attempt.ErrorCode = &adapterErr.Code
	}

	return attempt
}

// markContacted performs the one-time OPEN to CONTACTED transition and
// emits the lifecycle event only when this call made the change.
func (s *OutreachService) markContacted(ctx context.Context, ndr *domain.NDR) {
	transitioned, err := s.ndrs.MarkContacted(ctx, ndr.ID)
	if err != nil {
		s.log(ctx).Error("failed to mark ndr as contacted",
			zap.String("ndrId", ndr.ID),
			zap.Error(err),
		)
		return
	}
	if !transitioned {
		return
	}

	ndr.Status = domain.NDRStatusContacted

	if s.publisher == nil {
		return
	}
	event := events.NDREvent{
		Type:       events.EventNDRContacted,
		NDRID:      ndr.ID,
		NDRCode:    ndr.NDRCode,
		DeliveryID: ndr.DeliveryID,
		Status:     domain.NDRStatusContacted,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log(ctx).Error("failed to publish contact event",
			zap.String("ndrId", ndr.ID),
			zap.Error(err),
		)
	}
}

func (s *OutreachService) auditOutreach(
	ctx context.Context,
	ndr *domain.NDR,
	action domain.ActionType,
	attempt *domain.OutreachAttempt,
	sendErr error,
	sendDuration time.Duration,
) {
	status := domain.AuditStatusSuccess
	var errMessage *string
	if sendErr != nil {
		status = domain.AuditStatusFailed
		message := sendErr.Error()
		errMessage = &message
	}

	entry := &domain.AuditLogEntry{
		ID:             uuid.NewString(),
		CompanyID:      ndr.CompanyID,
		EntityType:     "OUTREACH_ATTEMPT",
		EntityID:       attempt.ID,
		ActionType:     action,
		Status:         status,
		ProcessingTime: &sendDuration,
		ErrorMessage:   errMessage,
	}

	if err := s.audits.Create(ctx, entry); err != nil {
		s.log(ctx).Error("failed to write outreach audit entry",
			zap.String("ndrId", ndr.ID),
			zap.Error(err),
		)
	}
}

func (s *OutreachService) auditAutoOutreach(ctx context.Context, ndr *domain.NDR, status domain.AuditStatus, message string) {
	entry := &domain.AuditLogEntry{
		ID:         uuid.NewString(),
		CompanyID:  ndr.CompanyID,
		EntityType: "NDR",
		EntityID:   ndr.ID,
		ActionType: domain.ActionAutoOutreach,
		Status:     status,
	}
	if message != "" {
		entry.ErrorMessage = &message
	}

	if err := s.audits.Create(ctx, entry); err != nil {
		s.log(ctx).Error("failed to write auto outreach audit entry",
			zap.String("ndrId", ndr.ID),
			zap.Error(err),
		)
	}
}
