package domain

import (
	"fmt"
	"strings"
	"time"
)

// Reason is the structured non-delivery failure reason.
type Reason string

const (
	ReasonCustomerNotAvailable Reason = "CUSTOMER_NOT_AVAILABLE"
	ReasonWrongAddress         Reason = "WRONG_ADDRESS"
	ReasonPhoneUnreachable     Reason = "PHONE_UNREACHABLE"
	ReasonRefused              Reason = "REFUSED"
	ReasonCODNotReady          Reason = "COD_NOT_READY"
	ReasonCustomerReschedule   Reason = "CUSTOMER_RESCHEDULE"
	ReasonOther                Reason = "OTHER"
)

func (r Reason) String() string { return string(r) }

func (r Reason) IsValid() bool {
	switch r {
	case ReasonCustomerNotAvailable, ReasonWrongAddress, ReasonPhoneUnreachable,
		ReasonRefused, ReasonCODNotReady, ReasonCustomerReschedule, ReasonOther:
		return true
	}
	return false
}

// NDRStatus is the lifecycle state of an NDR. This service creates
// records in OPEN and performs the single OPEN->CONTACTED transition;
// the remaining states belong to downstream resolution flows.
type NDRStatus string

const (
	NDRStatusOpen      NDRStatus = "OPEN"
	NDRStatusContacted NDRStatus = "CONTACTED"
	NDRStatusResolved  NDRStatus = "RESOLVED"
	NDRStatusRTO       NDRStatus = "RTO"
)

func (s NDRStatus) String() string { return string(s) }

func (s NDRStatus) IsValid() bool {
	switch s {
	case NDRStatusOpen, NDRStatusContacted, NDRStatusResolved, NDRStatusRTO:
		return true
	}
	return false
}

func ParseNDRStatusFromString(s string) (NDRStatus, error) {
	st := NDRStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid ndr status %q", ErrValidation, s)
	}
	return st, nil
}

// Priority is the derived severity signal used to gate automatic outreach.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ParsePriorityFromString(s string) (Priority, error) {
	pr := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !pr.IsValid() {
		return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
	}
	return pr, nil
}

// AutoOutreachEligible reports whether the priority alone qualifies an
// NDR for automatic outreach.
func (p Priority) AutoOutreachEligible() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// NDR is one non-delivery record per (DeliveryID, AttemptNumber) pair.
type NDR struct {
	ID               string
	NDRCode          string
	CompanyID        string
	DeliveryID       string
	CarrierNDRCode   string
	CarrierRemark    string
	AttemptNumber    int
	AttemptDate      time.Time
	Reason           Reason
	AIClassification string
	Confidence       float64
	Status           NDRStatus
	Priority         Priority
	RiskScore        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (n *NDR) Validate() error {
	if strings.TrimSpace(n.DeliveryID) == "" {
		return fmt.Errorf("%w: delivery id is required", ErrValidation)
	}
	if n.AttemptNumber < 1 {
		return fmt.Errorf("%w: attempt number must be >= 1 (got %d)", ErrValidation, n.AttemptNumber)
	}
	if !n.Reason.IsValid() {
		return fmt.Errorf("%w: invalid reason %q", ErrValidation, n.Reason)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, n.Priority)
	}
	if n.Confidence < 0 || n.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be within [0,1] (got %g)", ErrValidation, n.Confidence)
	}
	if n.RiskScore < 0 || n.RiskScore > 100 {
		return fmt.Errorf("%w: risk score must be within [0,100] (got %d)", ErrValidation, n.RiskScore)
	}
	return nil
}
