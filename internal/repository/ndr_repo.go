package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"gorm.io/gorm"
)

type NDRRepository interface {
	// CreateWithDeliveryFlip inserts the NDR and flips the linked
	// delivery to NDR status in one transaction. A unique violation on
	// (delivery_id, attempt_number) is returned as-is for the caller
	// to resolve via IsUniqueViolation.
	CreateWithDeliveryFlip(ctx context.Context, n *domain.NDR) error
	GetByID(ctx context.Context, id string) (*domain.NDR, error)
	GetByDeliveryAttempt(ctx context.Context, deliveryID string, attemptNumber int) (*domain.NDR, error)
	UpdateRemark(ctx context.Context, id string, remark string, attemptDate time.Time) error
	// MarkContacted performs the OPEN->CONTACTED transition. Returns
	// true only when this call made the transition; false means the
	// record was already past OPEN (idempotent no-op).
	MarkContacted(ctx context.Context, id string) (bool, error)
}

type GormNDRRepo struct {
	db *gorm.DB
}

func NewGormNDRRepo(db *gorm.DB) *GormNDRRepo {
	return &GormNDRRepo{db: db}
}

func (r *GormNDRRepo) CreateWithDeliveryFlip(ctx context.Context, n *domain.NDR) error {
	model := ndrModelFromDomain(n)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Model(&DeliveryModel{}).
			Where("id = ?", model.DeliveryID).
			Update("status", domain.DeliveryStatusNDR).Error
	})
	if err != nil {
		return err
	}

	if n != nil {
		*n = *ndrModelToDomain(model)
	}
	return nil
}

func (r *GormNDRRepo) GetByID(ctx context.Context, id string) (*domain.NDR, error) {
	var model NDRModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ndrModelToDomain(&model), nil
}

func (r *GormNDRRepo) GetByDeliveryAttempt(ctx context.Context, deliveryID string, attemptNumber int) (*domain.NDR, error) {
	var model NDRModel
	err := r.db.WithContext(ctx).
		Where("delivery_id = ? AND attempt_number = ?", deliveryID, attemptNumber).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ndrModelToDomain(&model), nil
}

func (r *GormNDRRepo) UpdateRemark(ctx context.Context, id string, remark string, attemptDate time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NDRModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"carrier_remark": remark,
			"attempt_date":   attemptDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormNDRRepo) MarkContacted(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NDRModel{}).
		Where("id = ? AND status = ?", id, domain.NDRStatusOpen).
		Update("status", domain.NDRStatusContacted)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IsUniqueViolation reports whether err is a storage uniqueness
// conflict, the signal that a concurrent writer won the creation race.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
