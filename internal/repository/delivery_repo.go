package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"gorm.io/gorm"
)

// DeliveryRepository is the read port into shipment/order data owned by
// the delivery service.
type DeliveryRepository interface {
	GetByAWB(ctx context.Context, awbNumber string) (*domain.Delivery, error)
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) GetByAWB(ctx context.Context, awbNumber string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).
		Where("awb_number = ?", awbNumber).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}
