package repository

import (
	"context"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
	"gorm.io/gorm"
)

type ActionCount struct {
	ActionType domain.ActionType `gorm:"column:action_type"`
	Count      int64             `gorm:"column:count"`
}

type StatusCount struct {
	Status domain.AuditStatus `gorm:"column:status"`
	Count  int64              `gorm:"column:count"`
}

// AuditStats is the dashboard read projection over audit_logs.
type AuditStats struct {
	Total              int64
	Today              int64
	SuccessRate        float64
	MeanConfidence     float64
	MeanProcessingTime time.Duration
	ByAction           []ActionCount
	ByStatus           []StatusCount
}

// AuditLogRepository is an append-only decision log with aggregate
// read projections.
type AuditLogRepository interface {
	Create(ctx context.Context, e *domain.AuditLogEntry) error
	CountByAction(ctx context.Context) ([]ActionCount, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	Stats(ctx context.Context, now time.Time) (*AuditStats, error)
}

type GormAuditRepo struct {
	db *gorm.DB
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db}
}

func (r *GormAuditRepo) Create(ctx context.Context, e *domain.AuditLogEntry) error {
	model := auditModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *auditModelToDomain(model)
	}
	return nil
}

func (r *GormAuditRepo) CountByAction(ctx context.Context) ([]ActionCount, error) {
	var counts []ActionCount
	err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Select("action_type, COUNT(*) as count").
		Group("action_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormAuditRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormAuditRepo) Stats(ctx context.Context, now time.Time) (*AuditStats, error) {
	stats := &AuditStats{}

	if err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Where("created_at >= ?", dayStart).
		Count(&stats.Today).Error; err != nil {
		return nil, err
	}

	var successCount int64
	if err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Where("status = ?", domain.AuditStatusSuccess).
		Count(&successCount).Error; err != nil {
		return nil, err
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(successCount) / float64(stats.Total)
	}

	var averages struct {
		MeanConfidence   *float64 `gorm:"column:mean_confidence"`
		MeanProcessingMS *float64 `gorm:"column:mean_processing_ms"`
	}
	err := r.db.WithContext(ctx).
		Model(&AuditLogModel{}).
		Select("AVG(confidence) as mean_confidence, AVG(processing_time_ms) as mean_processing_ms").
		Scan(&averages).Error
	if err != nil {
		return nil, err
	}
	if averages.MeanConfidence != nil {
		stats.MeanConfidence = *averages.MeanConfidence
	}
	if averages.MeanProcessingMS != nil {
		stats.MeanProcessingTime = time.Duration(*averages.MeanProcessingMS * float64(time.Millisecond))
	}

	byAction, err := r.CountByAction(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByAction = byAction

	byStatus, err := r.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByStatus = byStatus

	return stats, nil
}
