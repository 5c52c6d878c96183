package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/ndr-engine/internal/domain"
)

// EventType identifies the lifecycle change an event describes.
type EventType string

const (
	EventNDRCreated   EventType = "NDR_CREATED"
	EventNDRContacted EventType = "NDR_CONTACTED"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventNDRCreated, EventNDRContacted:
		return true
	}
	return false
}

// NDREvent is the broker payload for exception lifecycle changes.
type NDREvent struct {
	Type       EventType        `json:"type"`
	NDRID      string           `json:"ndrId"`
	NDRCode    string           `json:"ndrCode"`
	DeliveryID string           `json:"deliveryId"`
	Status     domain.NDRStatus `json:"status"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func (e NDREvent) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid event type %q", e.Type)
	}
	if strings.TrimSpace(e.NDRID) == "" {
		return fmt.Errorf("ndrId is required")
	}
	if strings.TrimSpace(e.DeliveryID) == "" {
		return fmt.Errorf("deliveryId is required")
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("invalid status %q", e.Status)
	}
	return nil
}
