package domain

import (
	"fmt"
	"strings"
	"time"
)

// ActionType identifies the automated decision recorded by an audit entry.
type ActionType string

const (
	ActionAutoClassify    ActionType = "AUTO_CLASSIFY"
	ActionAutoOutreach    ActionType = "AUTO_OUTREACH"
	ActionOutreachAttempt ActionType = "OUTREACH_ATTEMPT"
)

func (a ActionType) String() string { return string(a) }

func (a ActionType) IsValid() bool {
	switch a {
	case ActionAutoClassify, ActionAutoOutreach, ActionOutreachAttempt:
		return true
	}
	return false
}

// AuditStatus is the recorded outcome of an automated decision.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "SUCCESS"
	AuditStatusFailed  AuditStatus = "FAILED"
	AuditStatusPending AuditStatus = "PENDING"
	AuditStatusSkipped AuditStatus = "SKIPPED"
)

func (s AuditStatus) String() string { return string(s) }

func (s AuditStatus) IsValid() bool {
	switch s {
	case AuditStatusSuccess, AuditStatusFailed, AuditStatusPending, AuditStatusSkipped:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of one automated decision.
type AuditLogEntry struct {
	ID             string
	CompanyID      string
	EntityType     string
	EntityID       string
	ActionType     ActionType
	Status         AuditStatus
	Confidence     *float64
	ProcessingTime *time.Duration
	ErrorMessage   *string
	CreatedAt      time.Time
}

func (e *AuditLogEntry) Validate() error {
	if strings.TrimSpace(e.EntityType) == "" {
		return fmt.Errorf("%w: entity type is required", ErrValidation)
	}
	if !e.ActionType.IsValid() {
		return fmt.Errorf("%w: invalid action type %q", ErrValidation, e.ActionType)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: invalid audit status %q", ErrValidation, e.Status)
	}
	if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
		return fmt.Errorf("%w: confidence must be within [0,1] (got %g)", ErrValidation, *e.Confidence)
	}
	return nil
}
