package repository

import (
	"context"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"gorm.io/gorm"
)

// OutreachAttemptRepository is append-only: attempts are created once
// and never mutated.
type OutreachAttemptRepository interface {
	Create(ctx context.Context, a *domain.OutreachAttempt) error
	CountByNDRID(ctx context.Context, ndrID string) (int64, error)
	// ListByNDRID returns attempts newest-first.
	ListByNDRID(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error)
}

type GormOutreachRepo struct {
	db *gorm.DB
}

func NewGormOutreachRepo(db *gorm.DB) *GormOutreachRepo {
	return &GormOutreachRepo{db: db}
}

func (r *GormOutreachRepo) Create(ctx context.Context, a *domain.OutreachAttempt) error {
	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *attemptModelToDomain(model)
	}
	return nil
}

func (r *GormOutreachRepo) CountByNDRID(ctx context.Context, ndrID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&OutreachAttemptModel{}).
		Where("ndr_id = ?", ndrID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormOutreachRepo) ListByNDRID(ctx context.Context, ndrID string) ([]domain.OutreachAttempt, error) {
	var models []OutreachAttemptModel
	err := r.db.WithContext(ctx).
		Where("ndr_id = ?", ndrID).
		Order("attempt_number DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.OutreachAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
