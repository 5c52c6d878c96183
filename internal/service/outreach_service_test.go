package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/adapter"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/events"
	"github.com/kursadbilgin/ndr-engine/internal/observability"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testNDR() *domain.NDR {
	return &domain.NDR{
		ID:            "ndr-1",
		NDRCode:       "NDR-20260314-a1b2c3d4",
		CompanyID:     "comp-1",
		DeliveryID:    "del-1",
		AttemptNumber: 1,
		Reason:        domain.ReasonRefused,
		Confidence:    0.98,
		Status:        domain.NDRStatusOpen,
		Priority:      domain.PriorityCritical,
		RiskScore:     95,
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:            "ord-1",
		CompanyID:     "comp-1",
		OrderNumber:   "ORD-1001",
		CustomerName:  "Asha",
		CustomerPhone: "+919876543210",
		CustomerEmail: "asha@example.com",
	}
}

func newTestOutreachService(
	t *testing.T,
	ndrs *fakeNDRRepo,
	outreach *fakeOutreachRepo,
	audits *fakeAuditRepo,
	adapters map[domain.Channel]adapter.Adapter,
	publisher *fakeEventPublisher,
) *OutreachService {
	t.Helper()

	deliveries := &fakeDeliveryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Delivery, error) {
			return testDelivery(), nil
		},
		getOrderFn: func(ctx context.Context, orderID string) (*domain.Order, error) {
			return testOrder(), nil
		},
	}

	if adapters == nil {
		adapters = map[domain.Channel]adapter.Adapter{
			domain.ChannelWhatsApp: &fakeAdapter{},
		}
	}
	if audits == nil {
		audits = &fakeAuditRepo{}
	}

	hours := BusinessHours{Start: 9, End: 21, Location: time.UTC}
	var pub events.Publisher
	if publisher != nil {
		pub = publisher
	}

	svc, err := NewOutreachService(ndrs, deliveries, outreach, audits, adapters, pub, hours, domain.ChannelWhatsApp, nil)
	if err != nil {
		t.Fatalf("NewOutreachService() error = %v", err)
	}
	return svc
}

func TestDispatchHappyPath(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}

	var persisted *domain.OutreachAttempt
	outreach := &fakeOutreachRepo{
		countByNDRIDFn: func(ctx context.Context, ndrID string) (int64, error) {
			return 2, nil
		},
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			persisted = a
			return nil
		},
	}

	var sentTo, sentContent string
	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: &fakeAdapter{
			sendFn: func(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error) {
				sentTo = to
				sentContent = content
				return &adapter.SendResult{ProviderMessageID: "wamid-77", StatusCode: 200}, nil
			},
		},
	}

	var publishedEvent *events.NDREvent
	publisher := &fakeEventPublisher{
		publishFn: func(ctx context.Context, event events.NDREvent) error {
			publishedEvent = &event
			return nil
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, nil, adapters, publisher)

	attempt, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{Channel: domain.ChannelWhatsApp})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if attempt.Status != domain.OutreachStatusSent {
		t.Fatalf("status = %s, want SENT", attempt.Status)
	}
	if attempt.AttemptNumber != 3 {
		t.Fatalf("attempt number = %d, want 3", attempt.AttemptNumber)
	}
	if attempt.ProviderMessageID == nil || *attempt.ProviderMessageID != "wamid-77" {
		t.Fatalf("provider message id = %v, want wamid-77", attempt.ProviderMessageID)
	}
	if attempt.SentAt == nil {
		t.Fatal("sent at should be set")
	}
	if persisted == nil {
		t.Fatal("attempt should be persisted")
	}

	if sentTo != "+919876543210" {
		t.Fatalf("sent to = %q, want customer phone", sentTo)
	}
	if !strings.Contains(sentContent, "Asha") || !strings.Contains(sentContent, "ORD-1001") || !strings.Contains(sentContent, "AWB123") {
		t.Fatalf("rendered content missing placeholders: %q", sentContent)
	}
	if strings.Contains(sentContent, "{{") {
		t.Fatalf("unrendered placeholder left in content: %q", sentContent)
	}

	if publishedEvent == nil {
		t.Fatal("expected contact event")
	}
	if publishedEvent.Type != events.EventNDRContacted {
		t.Fatalf("event type = %s, want NDR_CONTACTED", publishedEvent.Type)
	}
	if publishedEvent.Status != domain.NDRStatusContacted {
		t.Fatalf("event status = %s, want CONTACTED", publishedEvent.Status)
	}
}

func TestDispatchAdapterFailureRecordsFailedAttempt(t *testing.T) {
	t.Parallel()

	markContactedCalled := false
	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
		markContactedFn: func(ctx context.Context, id string) (bool, error) {
			markContactedCalled = true
			return true, nil
		},
	}

	var persisted *domain.OutreachAttempt
	outreach := &fakeOutreachRepo{
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			persisted = a
			return nil
		},
	}

	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: &fakeAdapter{
			sendFn: func(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error) {
				return nil, &adapter.AdapterError{StatusCode: 502, Code: "E42", Message: "gateway refused", Transient: true}
			},
		},
	}

	var auditEntry *domain.AuditLogEntry
	audits := &fakeAuditRepo{
		createFn: func(ctx context.Context, e *domain.AuditLogEntry) error {
			auditEntry = e
			return nil
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, audits, adapters, nil)

	attempt, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{Channel: domain.ChannelWhatsApp})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if attempt.Status != domain.OutreachStatusFailed {
		t.Fatalf("status = %s, want FAILED", attempt.Status)
	}
	if attempt.ErrorCode == nil || *attempt.ErrorCode != "E42" {
		t.Fatalf("error code = %v, want E42", attempt.ErrorCode)
	}
	if attempt.ErrorMessage == nil {
		t.Fatal("error message should be recorded")
	}
	if attempt.SentAt != nil {
		t.Fatal("failed attempt must not carry sent at")
	}
	if persisted == nil {
		t.Fatal("failed attempt must still be persisted")
	}
	if markContactedCalled {
		t.Fatal("failed send must not mark the ndr as contacted")
	}
	if auditEntry == nil || auditEntry.Status != domain.AuditStatusFailed {
		t.Fatalf("audit entry = %+v, want FAILED outreach audit", auditEntry)
	}
	if auditEntry.ActionType != domain.ActionOutreachAttempt {
		t.Fatalf("audit action = %s, want OUTREACH_ATTEMPT", auditEntry.ActionType)
	}
	if auditEntry.ProcessingTime == nil {
		t.Fatal("audit entry should record the send duration")
	}
}

func TestDispatchEmailWithoutAddressWritesNoRow(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}
	outreach := &fakeOutreachRepo{
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			t.Fatal("validation failure must not write an attempt row")
			return nil
		},
	}

	deliveries := &fakeDeliveryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Delivery, error) {
			return testDelivery(), nil
		},
		getOrderFn: func(ctx context.Context, orderID string) (*domain.Order, error) {
			order := testOrder()
			order.CustomerEmail = ""
			return order, nil
		},
	}

	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelEmail:    &fakeAdapter{},
		domain.ChannelWhatsApp: &fakeAdapter{},
	}

	hours := BusinessHours{Start: 9, End: 21, Location: time.UTC}
	svc, err := NewOutreachService(ndrs, deliveries, outreach, &fakeAuditRepo{}, adapters, nil, hours, domain.ChannelWhatsApp, nil)
	if err != nil {
		t.Fatalf("NewOutreachService() error = %v", err)
	}

	_, err = svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{Channel: domain.ChannelEmail})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Dispatch() error = %v, want ErrValidation", err)
	}
}

func TestDispatchUnknownNDR(t *testing.T) {
	t.Parallel()

	svc := newTestOutreachService(t, &fakeNDRRepo{}, &fakeOutreachRepo{}, nil, nil, nil)

	_, err := svc.Dispatch(context.Background(), "missing", DispatchRequest{Channel: domain.ChannelWhatsApp})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Dispatch() error = %v, want ErrNotFound", err)
	}
}

func TestDispatchUnknownTemplate(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}
	svc := newTestOutreachService(t, ndrs, &fakeOutreachRepo{}, nil, nil, nil)

	templateID := "does_not_exist"
	_, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{
		Channel:    domain.ChannelWhatsApp,
		TemplateID: &templateID,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Dispatch() error = %v, want ErrValidation", err)
	}
}

func TestDispatchLanguageSelectsTemplateVariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		language string
		want     string
	}{
		{name: "hindi variant", language: "hi", want: "नमस्ते Asha"},
		{name: "unknown language falls back to english", language: "sw", want: "Hi Asha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ndrs := &fakeNDRRepo{
				getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
					return testNDR(), nil
				},
			}
			outreach := &fakeOutreachRepo{}
			svc := newTestOutreachService(t, ndrs, outreach, nil, nil, nil)

			attempt, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{
				Channel:  domain.ChannelWhatsApp,
				Language: &tt.language,
			})
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if !strings.Contains(attempt.MessageContent, tt.want) {
				t.Fatalf("content = %q, want it to contain %q", attempt.MessageContent, tt.want)
			}
		})
	}
}

func TestDispatchCustomMessageOverridesTemplate(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}

	var sentContent string
	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: &fakeAdapter{
			sendFn: func(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error) {
				sentContent = content
				return &adapter.SendResult{ProviderMessageID: "m1", StatusCode: 200}, nil
			},
		},
	}

	svc := newTestOutreachService(t, ndrs, &fakeOutreachRepo{}, nil, adapters, nil)

	custom := "Hello {{name}}, please call us about order {{orderNumber}}."
	attempt, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{
		Channel:       domain.ChannelWhatsApp,
		CustomMessage: &custom,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if sentContent != "Hello Asha, please call us about order ORD-1001." {
		t.Fatalf("content = %q", sentContent)
	}
	if attempt.TemplateID != nil {
		t.Fatal("custom message attempt should not reference a template")
	}
}

func TestDispatchLogsCarryCorrelationID(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}
	deliveries := &fakeDeliveryRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Delivery, error) {
			return testDelivery(), nil
		},
		getOrderFn: func(ctx context.Context, orderID string) (*domain.Order, error) {
			return testOrder(), nil
		},
	}
	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: &fakeAdapter{},
	}

	core, recorded := observer.New(zapcore.InfoLevel)
	hours := BusinessHours{Start: 9, End: 21, Location: time.UTC}
	svc, err := NewOutreachService(ndrs, deliveries, &fakeOutreachRepo{}, &fakeAuditRepo{}, adapters, nil, hours, domain.ChannelWhatsApp, zap.New(core))
	if err != nil {
		t.Fatalf("NewOutreachService() error = %v", err)
	}

	ctx := observability.WithCorrelationID(context.Background(), "req-777")
	if _, err := svc.Dispatch(ctx, "ndr-1", DispatchRequest{Channel: domain.ChannelWhatsApp}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	entries := recorded.FilterMessage("outreach sent").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["correlationId"]; got != "req-777" {
		t.Fatalf("correlationId = %v, want req-777", got)
	}
}

func TestDispatchMarksContactedOnlyOnFirstSuccess(t *testing.T) {
	t.Parallel()

	transitions := 0
	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
		markContactedFn: func(ctx context.Context, id string) (bool, error) {
			transitions++
			return transitions == 1, nil
		},
	}

	contactEvents := 0
	publisher := &fakeEventPublisher{
		publishFn: func(ctx context.Context, event events.NDREvent) error {
			if event.Type == events.EventNDRContacted {
				contactEvents++
			}
			return nil
		},
	}

	svc := newTestOutreachService(t, ndrs, &fakeOutreachRepo{}, nil, nil, publisher)

	for i := 0; i < 3; i++ {
		if _, err := svc.Dispatch(context.Background(), "ndr-1", DispatchRequest{Channel: domain.ChannelWhatsApp}); err != nil {
			t.Fatalf("Dispatch() #%d error = %v", i+1, err)
		}
	}

	if contactEvents != 1 {
		t.Fatalf("contact events = %d, want 1", contactEvents)
	}
}

func TestAutoTriggerOutsideBusinessHoursWritesNothing(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}
	outreach := &fakeOutreachRepo{
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			t.Fatal("no attempt row outside business hours")
			return nil
		},
	}
	adapters := map[domain.Channel]adapter.Adapter{
		domain.ChannelWhatsApp: &fakeAdapter{
			sendFn: func(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error) {
				t.Fatal("no send outside business hours")
				return nil, nil
			},
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, nil, adapters, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 22, 15, 0, 0, time.UTC)
	}

	if err := svc.AutoTrigger(context.Background(), "ndr-1"); err != nil {
		t.Fatalf("AutoTrigger() error = %v", err)
	}
}

func TestAutoTriggerInsideBusinessHoursDispatches(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}

	var persisted *domain.OutreachAttempt
	outreach := &fakeOutreachRepo{
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			persisted = a
			return nil
		},
	}

	var auditEntries []*domain.AuditLogEntry
	audits := &fakeAuditRepo{
		createFn: func(ctx context.Context, e *domain.AuditLogEntry) error {
			auditEntries = append(auditEntries, e)
			return nil
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, audits, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	}

	if err := svc.AutoTrigger(context.Background(), "ndr-1"); err != nil {
		t.Fatalf("AutoTrigger() error = %v", err)
	}

	if persisted == nil {
		t.Fatal("expected an attempt row inside business hours")
	}
	if persisted.Channel != domain.ChannelWhatsApp {
		t.Fatalf("channel = %s, want WHATSAPP", persisted.Channel)
	}
	if persisted.TemplateID == nil || *persisted.TemplateID != defaultTemplateID {
		t.Fatalf("template id = %v, want %s", persisted.TemplateID, defaultTemplateID)
	}

	// One automatic send is one audited decision.
	if len(auditEntries) != 1 {
		t.Fatalf("audit entries = %d, want exactly 1", len(auditEntries))
	}
	if auditEntries[0].ActionType != domain.ActionAutoOutreach {
		t.Fatalf("audit action = %s, want AUTO_OUTREACH", auditEntries[0].ActionType)
	}
	if auditEntries[0].Status != domain.AuditStatusSuccess {
		t.Fatalf("audit status = %s, want SUCCESS", auditEntries[0].Status)
	}
}

func TestAutoTriggerIneligiblePriority(t *testing.T) {
	t.Parallel()

	ndr := testNDR()
	ndr.Priority = domain.PriorityMedium
	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return ndr, nil
		},
	}
	outreach := &fakeOutreachRepo{
		createFn: func(ctx context.Context, a *domain.OutreachAttempt) error {
			t.Fatal("medium priority must not auto-dispatch")
			return nil
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, nil, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	}

	if err := svc.AutoTrigger(context.Background(), "ndr-1"); err != nil {
		t.Fatalf("AutoTrigger() error = %v", err)
	}
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	t.Parallel()

	ndrs := &fakeNDRRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.NDR, error) {
			return testNDR(), nil
		},
	}
	outreach := &fakeOutreachRepo{
		listByNDRIDFn: func(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error) {
			return []domain.OutreachAttempt{
				{ID: "a2", AttemptNumber: 2},
				{ID: "a1", AttemptNumber: 1},
			}, nil
		},
	}

	svc := newTestOutreachService(t, ndrs, outreach, nil, nil, nil)

	attempts, err := svc.History(context.Background(), "ndr-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("len = %d, want 2", len(attempts))
	}
	if attempts[0].AttemptNumber != 2 {
		t.Fatalf("first attempt number = %d, want 2", attempts[0].AttemptNumber)
	}
}

func TestHistoryUnknownNDR(t *testing.T) {
	t.Parallel()

	svc := newTestOutreachService(t, &fakeNDRRepo{}, &fakeOutreachRepo{}, nil, nil, nil)

	_, err := svc.History(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("History() error = %v, want ErrNotFound", err)
	}
}
