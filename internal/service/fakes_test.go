package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/adapter"
	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"github.com/kursadbilgin/ndr-engine/internal/events"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
)

type fakeNDRRepo struct {
	createWithDeliveryFlipFn func(ctx context.Context, n *domain.NDR) error
	getByIDFn                func(ctx context.Context, id string) (*domain.NDR, error)
	getByDeliveryAttemptFn   func(ctx context.Context, deliveryID string, attemptNumber int) (*domain.NDR, error)
	updateRemarkFn           func(ctx context.Context, id string, remark string, attemptDate time.Time) error
	markContactedFn          func(ctx context.Context, id string) (bool, error)
}

func (f *fakeNDRRepo) CreateWithDeliveryFlip(ctx context.Context, n *domain.NDR) error {
	if f.createWithDeliveryFlipFn != nil {
		return f.createWithDeliveryFlipFn(ctx, n)
	}
	return nil
}

func (f *fakeNDRRepo) GetByID(ctx context.Context, id string) (*domain.NDR, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNDRRepo) GetByDeliveryAttempt(ctx context.Context, deliveryID string, attemptNumber int) (*domain.NDR, error) {
	if f.getByDeliveryAttemptFn != nil {
		return f.getByDeliveryAttemptFn(ctx, deliveryID, attemptNumber)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeNDRRepo) UpdateRemark(ctx context.Context, id string, remark string, attemptDate time.Time) error {
	if f.updateRemarkFn != nil {
		return f.updateRemarkFn(ctx, id, remark, attemptDate)
	}
	return nil
}

func (f *fakeNDRRepo) MarkContacted(ctx context.Context, id string) (bool, error) {
	if f.markContactedFn != nil {
		return f.markContactedFn(ctx, id)
	}
	return true, nil
}

type fakeDeliveryRepo struct {
	getByAWBFn func(ctx context.Context, awbNumber string) (*domain.Delivery, error)
	getByIDFn  func(ctx context.Context, id string) (*domain.Delivery, error)
	getOrderFn func(ctx context.Context, orderID string) (*domain.Order, error)
}

func (f *fakeDeliveryRepo) GetByAWB(ctx context.Context, awbNumber string) (*domain.Delivery, error) {
	if f.getByAWBFn != nil {
		return f.getByAWBFn(ctx, awbNumber)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if f.getOrderFn != nil {
		return f.getOrderFn(ctx, orderID)
	}
	return nil, domain.ErrNotFound
}

type fakeOutreachRepo struct {
	createFn       func(ctx context.Context, a *domain.OutreachAttempt) error
	countByNDRIDFn func(ctx context.Context, ndrID string) (int64, error)
	listByNDRIDFn  func(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error)
}

func (f *fakeOutreachRepo) Create(ctx context.Context, a *domain.OutreachAttempt) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeOutreachRepo) CountByNDRID(ctx context.Context, ndrID string) (int64, error) {
	if f.countByNDRIDFn != nil {
		return f.countByNDRIDFn(ctx, ndrID)
	}
	return 0, nil
}

func (f *fakeOutreachRepo) ListByNDRID(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error) {
	if f.listByNDRIDFn != nil {
		return f.listByNDRIDFn(ctx, ndrID)
	}
	return nil, nil
}

type fakeAuditRepo struct {
	createFn func(ctx context.Context, e *domain.AuditLogEntry) error
}

func (f *fakeAuditRepo) Create(ctx context.Context, e *domain.AuditLogEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeAuditRepo) CountByAction(ctx context.Context) ([]repository.ActionCount, error) {
	return nil, nil
}

func (f *fakeAuditRepo) CountByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	return nil, nil
}

func (f *fakeAuditRepo) Stats(ctx context.Context, now time.Time) (*repository.AuditStats, error) {
	return &repository.AuditStats{}, nil
}

type fakeEventPublisher struct {
	publishFn func(ctx context.Context, event events.NDREvent) error
}

func (f *fakeEventPublisher) Publish(ctx context.Context, event events.NDREvent) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, event)
	}
	return nil
}

type fakeAdapter struct {
	sendFn func(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error)
}

func (f *fakeAdapter) Send(ctx context.Context, to string, content string, variables map[string]string) (*adapter.SendResult, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, to, content, variables)
	}
	return &adapter.SendResult{ProviderMessageID: "fake-msg-id", StatusCode: 200}, nil
}

type fakeTrigger struct {
	submitFn func(ndrID string) bool
}

func (f *fakeTrigger) Submit(ndrID string) bool {
	if f.submitFn != nil {
		return f.submitFn(ndrID)
	}
	return true
}
