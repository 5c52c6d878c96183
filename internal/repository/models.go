package repository

import (
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

// NDRModel is the persistence model for the ndrs table. The composite
// unique index on (delivery_id, attempt_number) is the dedup boundary
// for concurrent webhook deliveries.
type NDRModel struct {
	ID               string           `gorm:"type:uuid;primaryKey"`
	NDRCode          string           `gorm:"type:varchar(40);not null;uniqueIndex"`
	CompanyID        string           `gorm:"type:uuid;not null"`
	DeliveryID       string           `gorm:"type:uuid;not null;uniqueIndex:idx_ndrs_delivery_attempt"`
	CarrierNDRCode   string           `gorm:"type:varchar(64)"`
	CarrierRemark    string           `gorm:"type:text"`
	AttemptNumber    int              `gorm:"not null;uniqueIndex:idx_ndrs_delivery_attempt"`
	AttemptDate      time.Time        `gorm:"type:timestamptz;not null"`
	Reason           domain.Reason    `gorm:"type:varchar(30);not null"`
	AIClassification string           `gorm:"type:text"`
	Confidence       float64          `gorm:"not null"`
	Status           domain.NDRStatus `gorm:"type:varchar(20);not null"`
	Priority         domain.Priority  `gorm:"type:varchar(10);not null"`
	RiskScore        int              `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (NDRModel) TableName() string {
	return "ndrs"
}

// OutreachAttemptModel is the persistence model for outreach_attempts.
type OutreachAttemptModel struct {
	ID                string                `gorm:"type:uuid;primaryKey"`
	NDRID             string                `gorm:"type:uuid;not null;index"`
	Channel           domain.Channel        `gorm:"type:varchar(10);not null"`
	AttemptNumber     int                   `gorm:"not null"`
	TemplateID        *string               `gorm:"type:varchar(64)"`
	MessageContent    string                `gorm:"type:text;not null"`
	Status            domain.OutreachStatus `gorm:"type:varchar(10);not null"`
	SentAt            *time.Time            `gorm:"type:timestamptz"`
	ProviderMessageID *string               `gorm:"type:varchar(255)"`
	ErrorCode         *string               `gorm:"type:varchar(64)"`
	ErrorMessage      *string               `gorm:"type:text"`
	CreatedAt         time.Time
}

func (OutreachAttemptModel) TableName() string {
	return "outreach_attempts"
}

// AuditLogModel is the persistence model for audit_logs. Rows are
// append-only; there is no update path.
type AuditLogModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	CompanyID        string             `gorm:"type:uuid"`
	EntityType       string             `gorm:"type:varchar(30);not null"`
	EntityID         string             `gorm:"type:varchar(64);not null"`
	ActionType       domain.ActionType  `gorm:"type:varchar(30);not null"`
	Status           domain.AuditStatus `gorm:"type:varchar(10);not null"`
	Confidence       *float64
	ProcessingTimeMS *int64  `gorm:"column:processing_time_ms"`
	ErrorMessage     *string `gorm:"type:text"`
	CreatedAt        time.Time
}

func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// DeliveryModel maps the deliveries table owned by the shipment
// service; this core reads it by AWB and flips status to NDR.
type DeliveryModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	CompanyID       string                `gorm:"type:uuid;not null"`
	OrderID         string                `gorm:"type:uuid;not null"`
	AWBNumber       string                `gorm:"type:varchar(64);not null;index"`
	TransporterName string                `gorm:"type:varchar(120)"`
	Status          domain.DeliveryStatus `gorm:"type:varchar(20);not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (DeliveryModel) TableName() string {
	return "deliveries"
}

// OrderModel maps the orders table; read-only contact source for outreach.
type OrderModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	CompanyID     string `gorm:"type:uuid;not null"`
	OrderNumber   string `gorm:"type:varchar(64);not null"`
	CustomerName  string `gorm:"type:varchar(120)"`
	CustomerPhone string `gorm:"type:varchar(32)"`
	CustomerEmail string `gorm:"type:varchar(255)"`
}

func (OrderModel) TableName() string {
	return "orders"
}

func ndrModelFromDomain(n *domain.NDR) *NDRModel {
	if n == nil {
		return nil
	}

	return &NDRModel{
		ID:               n.ID,
		NDRCode:          n.NDRCode,
		CompanyID:        n.CompanyID,
		DeliveryID:       n.DeliveryID,
		CarrierNDRCode:   n.CarrierNDRCode,
		CarrierRemark:    n.CarrierRemark,
		AttemptNumber:    n.AttemptNumber,
		AttemptDate:      n.AttemptDate,
		Reason:           n.Reason,
		AIClassification: n.AIClassification,
		Confidence:       n.Confidence,
		Status:           n.Status,
		Priority:         n.Priority,
		RiskScore:        n.RiskScore,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}
}

func ndrModelToDomain(m *NDRModel) *domain.NDR {
	if m == nil {
		return nil
	}

	return &domain.NDR{
		ID:               m.ID,
		NDRCode:          m.NDRCode,
		CompanyID:        m.CompanyID,
		DeliveryID:       m.DeliveryID,
		CarrierNDRCode:   m.CarrierNDRCode,
		CarrierRemark:    m.CarrierRemark,
		AttemptNumber:    m.AttemptNumber,
		AttemptDate:      m.AttemptDate,
		Reason:           m.Reason,
		AIClassification: m.AIClassification,
		Confidence:       m.Confidence,
		Status:           m.Status,
		Priority:         m.Priority,
		RiskScore:        m.RiskScore,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.OutreachAttempt) *OutreachAttemptModel {
	if a == nil {
		return nil
	}

	return &OutreachAttemptModel{
		ID:                a.ID,
		NDRID:             a.NDRID,
		Channel:           a.Channel,
		AttemptNumber:     a.AttemptNumber,
		TemplateID:        a.TemplateID,
		MessageContent:    a.MessageContent,
		Status:            a.Status,
		SentAt:            a.SentAt,
		ProviderMessageID: a.ProviderMessageID,
		ErrorCode:         a.ErrorCode,
		ErrorMessage:      a.ErrorMessage,
		CreatedAt:         a.CreatedAt,
	}
}

func attemptModelToDomain(m *OutreachAttemptModel) *domain.OutreachAttempt {
	if m == nil {
		return nil
	}

	return &domain.OutreachAttempt{
		ID:                m.ID,
		NDRID:             m.NDRID,
		Channel:           m.Channel,
		AttemptNumber:     m.AttemptNumber,
		TemplateID:        m.TemplateID,
		MessageContent:    m.MessageContent,
		Status:            m.Status,
		SentAt:            m.SentAt,
		ProviderMessageID: m.ProviderMessageID,
		ErrorCode:         m.ErrorCode,
		ErrorMessage:      m.ErrorMessage,
		CreatedAt:         m.CreatedAt,
	}
}

func auditModelFromDomain(e *domain.AuditLogEntry) *AuditLogModel {
	if e == nil {
		return nil
	}

	var processingMS *int64
	if e.ProcessingTime != nil {
		value := e.ProcessingTime.Milliseconds()
		processingMS = &value
	}

	return &AuditLogModel{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		EntityType:       e.EntityType,
		EntityID:         e.EntityID,
		ActionType:       e.ActionType,
		Status:           e.Status,
		Confidence:       e.Confidence,
		ProcessingTimeMS: processingMS,
		ErrorMessage:     e.ErrorMessage,
		CreatedAt:        e.CreatedAt,
	}
}

func auditModelToDomain(m *AuditLogModel) *domain.AuditLogEntry {
	if m == nil {
		return nil
	}

	var processing *time.Duration
	if m.ProcessingTimeMS != nil {
		value := time.Duration(*m.ProcessingTimeMS) * time.Millisecond
		processing = &value
	}

	return &domain.AuditLogEntry{
		ID:             m.ID,
		CompanyID:      m.CompanyID,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		ActionType:     m.ActionType,
		Status:         m.Status,
		Confidence:     m.Confidence,
		ProcessingTime: processing,
		ErrorMessage:   m.ErrorMessage,
		CreatedAt:      m.CreatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		OrderID:         m.OrderID,
		AWBNumber:       m.AWBNumber,
		TransporterName: m.TransporterName,
		Status:          m.Status,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}

	return &domain.Order{
		ID:            m.ID,
		CompanyID:     m.CompanyID,
		OrderNumber:   m.OrderNumber,
		CustomerName:  m.CustomerName,
		CustomerPhone: m.CustomerPhone,
		CustomerEmail: m.CustomerEmail,
	}
}
