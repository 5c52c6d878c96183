package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/ndr-engine/internal/carrier"
	"github.com/kursadbilgin/ndr-engine/internal/classify"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/events"
	"github.com/kursadbilgin/ndr-engine/internal/observability"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
	"go.uber.org/zap"
)

// IngestOutcome describes what a webhook did to the NDR store.
type IngestOutcome string

const (
	OutcomeCreated IngestOutcome = "created"
	OutcomeUpdated IngestOutcome = "updated"
	OutcomeSkipped IngestOutcome = "skipped"
)

// IngestResult is the processing summary returned to the webhook caller.
type IngestResult struct {
	Outcome        IngestOutcome
	NDR            *domain.NDR
	Classification *classify.Result
}

// OutreachTrigger accepts NDR ids for asynchronous automatic outreach.
// Submit never blocks; a false return means the task was dropped.
type OutreachTrigger interface {
	Submit(ndrID string) bool
}

type IngestService struct {
	ndrs       repository.NDRRepository
	deliveries repository.DeliveryRepository
	audits     repository.AuditLogRepository
	classifier *classify.Classifier
	publisher  events.Publisher
	trigger    OutreachTrigger
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewIngestService(
	ndrs repository.NDRRepository,
	deliveries repository.DeliveryRepository,
	audits repository.AuditLogRepository,
	classifier *classify.Classifier,
	publisher events.Publisher,
	trigger OutreachTrigger,
	logger *zap.Logger,
) (*IngestService, error) {
	if classifier == nil {
		classifier = classify.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &IngestService{
		ndrs:       ndrs,
		deliveries: deliveries,
		audits:     audits,
		classifier: classifier,
		publisher:  publisher,
		trigger:    trigger,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *IngestService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// log returns the service logger enriched with the request's
// correlation id when the context carries one.
func (s *IngestService) log(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(s.logger, ctx)
}

// Ingest processes one normalized carrier record. Records for unknown
// AWBs are audited and skipped; a record repeating a known
// (delivery, attempt) pair refreshes the remark instead of creating a
// second NDR.
func (s *IngestService) Ingest(ctx context.Context, rec carrier.CanonicalRecord) (*IngestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	awb := strings.TrimSpace(rec.AWBNumber)
	if awb == "" {
		return nil, fmt.Errorf("%w: awb number is required", domain.ErrValidation)
	}
	if rec.AttemptNumber < 1 {
		rec.AttemptNumber = 1
	}

	start := s.now()

	delivery, err := s.deliveries.GetByAWB(ctx, awb)
	if errors.Is(err, domain.ErrNotFound) {
		s.log(ctx).Warn("webhook for unknown awb, skipping",
			zap.String("awbNumber", awb),
			zap.String("sourceFormat", rec.SourceFormat),
		)
		s.auditClassification(ctx, "", "", domain.AuditStatusSkipped, nil, s.now().Sub(start),
			fmt.Sprintf("no delivery found for awb %q", awb))
		s.metrics.IncWebhook(rec.SourceFormat, string(OutcomeSkipped))
		return &IngestResult{Outcome: OutcomeSkipped}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery for awb %q: %w", awb, err)
	}

	existing, err := s.ndrs.GetByDeliveryAttempt(ctx, delivery.ID, rec.AttemptNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing ndr: %w", err)
	}
	if err == nil {
		return s.refreshExisting(ctx, existing, rec)
	}

	result := s.classifier.Classify(rec.CarrierRemark)

	ndr := &domain.NDR{
		ID:               uuid.NewString(),
		NDRCode:          s.generateNDRCode(),
		CompanyID:        delivery.CompanyID,
		DeliveryID:       delivery.ID,
		CarrierNDRCode:   rec.CarrierEventCode,
		CarrierRemark:    rec.CarrierRemark,
		AttemptNumber:    rec.AttemptNumber,
		AttemptDate:      rec.AttemptTimestamp,
		Reason:           result.Reason,
		AIClassification: result.Explanation,
		Confidence:       result.Confidence,
		Status:           domain.NDRStatusOpen,
		Priority:         result.Priority,
		RiskScore:        result.RiskScore,
	}
	if err := ndr.Validate(); err != nil {
		return nil, err
	}

	if err := s.ndrs.CreateWithDeliveryFlip(ctx, ndr); err != nil {
		if repository.IsUniqueViolation(err) {
			winner, resolved, resolveErr := s.resolveCreateRace(ctx, delivery.ID, rec)
			if resolveErr != nil {
				return nil, resolveErr
			}
			if resolved {
				return winner, nil
			}
		}
		s.auditClassification(ctx, delivery.CompanyID, "", domain.AuditStatusFailed,
			&result.Confidence, s.now().Sub(start), err.Error())
		return nil, fmt.Errorf("failed to create ndr: %w", err)
	}

	s.auditClassification(ctx, delivery.CompanyID, ndr.ID, domain.AuditStatusSuccess,
		&result.Confidence, s.now().Sub(start), "")
	s.metrics.IncWebhook(rec.SourceFormat, string(OutcomeCreated))
	s.metrics.IncNDRClassified(string(result.Reason), string(result.Priority))

	s.log(ctx).Info("ndr created",
		zap.String("ndrId", ndr.ID),
		zap.String("ndrCode", ndr.NDRCode),
		zap.String("deliveryId", ndr.DeliveryID),
		zap.Int("attemptNumber", ndr.AttemptNumber),
		zap.String("reason", string(ndr.Reason)),
		zap.String("priority", string(ndr.Priority)),
	)

	s.publishEvent(ctx, events.NDREvent{
		Type:       events.EventNDRCreated,
		NDRID:      ndr.ID,
		NDRCode:    ndr.NDRCode,
		DeliveryID: ndr.DeliveryID,
		Status:     ndr.Status,
		OccurredAt: s.now().UTC(),
	})

	if s.trigger != nil && ndr.Priority.AutoOutreachEligible() {
		if !s.trigger.Submit(ndr.ID) {
			s.log(ctx).Warn("auto outreach task dropped", zap.String("ndrId", ndr.ID))
		}
	}

	return &IngestResult{Outcome: OutcomeCreated, NDR: ndr, Classification: &result}, nil
}

// refreshExisting is the duplicate path: the remark and attempt date
// are refreshed, classification and lifecycle are left untouched.
func (s *IngestService) refreshExisting(
	ctx context.Context,
	existing *domain.NDR,
	rec carrier.CanonicalRecord,
) (*IngestResult, error) {
	if err := s.ndrs.UpdateRemark(ctx, existing.ID, rec.CarrierRemark, rec.AttemptTimestamp); err != nil {
		return nil, fmt.Errorf("failed to refresh existing ndr %q: %w", existing.ID, err)
	}

	existing.CarrierRemark = rec.CarrierRemark
	existing.AttemptDate = rec.AttemptTimestamp

	s.metrics.IncWebhook(rec.SourceFormat, string(OutcomeUpdated))
	s.log(ctx).Info("duplicate webhook refreshed existing ndr",
		zap.String("ndrId", existing.ID),
		zap.String("deliveryId", existing.DeliveryID),
		zap.Int("attemptNumber", existing.AttemptNumber),
	)

	return &IngestResult{Outcome: OutcomeUpdated, NDR: existing}, nil
}

// resolveCreateRace handles a concurrent writer winning the
// (delivery_id, attempt_number) insert: the losing request degrades to
// the refresh path against the winner's row.
func (s *IngestService) resolveCreateRace(
	ctx context.Context,
	deliveryID string,
	rec carrier.CanonicalRecord,
) (*IngestResult, bool, error) {
	winner, err := s.ndrs.GetByDeliveryAttempt(ctx, deliveryID, rec.AttemptNumber)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load ndr after unique conflict: %w", err)
	}

	s.log(ctx).Info("ndr creation race resolved",
		zap.String("existingId", winner.ID),
		zap.String("deliveryId", deliveryID),
		zap.Int("attemptNumber", rec.AttemptNumber),
	)

	result, refreshErr := s.refreshExisting(ctx, winner, rec)
	if refreshErr != nil {
		return nil, false, refreshErr
	}
	return result, true, nil
}

func (s *IngestService) generateNDRCode() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("NDR-%s-%s", s.now().UTC().Format("20060102"), suffix)
}

func (s *IngestService) auditClassification(
	ctx context.Context,
	companyID string,
	ndrID string,
	status domain.AuditStatus,
	confidence *float64,
	elapsed time.Duration,
	errMessage string,
) {
	entry := &domain.AuditLogEntry{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		EntityType:     "NDR",
		EntityID:       ndrID,
		ActionType:     domain.ActionAutoClassify,
		Status:         status,
		Confidence:     confidence,
		ProcessingTime: &elapsed,
	}
	if errMessage != "" {
		entry.ErrorMessage = &errMessage
	}

	if err := s.audits.Create(ctx, entry); err != nil {
		s.log(ctx).Error("failed to write classification audit entry",
			zap.String("ndrId", ndrID),
			zap.Error(err),
		)
	}
}

func (s *IngestService) publishEvent(ctx context.Context, event events.NDREvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log(ctx).Error("failed to publish ndr event",
			zap.String("ndrId", event.NDRID),
			zap.String("eventType", string(event.Type)),
			zap.Error(err),
		)
	}
}
