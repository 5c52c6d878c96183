package domain

import "time"

// DeliveryStatus mirrors the shipment status enum owned by the delivery
// service. This core only ever writes STATUS_NDR.
type DeliveryStatus string

const (
	DeliveryStatusInTransit      DeliveryStatus = "IN_TRANSIT"
	DeliveryStatusOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryStatusDelivered      DeliveryStatus = "DELIVERED"
	DeliveryStatusNDR            DeliveryStatus = "NDR"
	DeliveryStatusRTO            DeliveryStatus = "RTO"
)

func (s DeliveryStatus) String() string { return string(s) }

// Delivery is a read-mostly projection of a shipment owned by the
// delivery service; this core flips Status to NDR and nothing else.
type Delivery struct {
	ID              string
	CompanyID       string
	OrderID         string
	AWBNumber       string
	TransporterName string
	Status          DeliveryStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Order supplies the customer contact fields used in outreach content.
// Read-only here.
type Order struct {
	ID            string
	CompanyID     string
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}
